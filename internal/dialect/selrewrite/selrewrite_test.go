package selrewrite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewriteSelToSelect(t *testing.T) {
	got, err := Rewriter{}.Rewrite("SEL * FROM users")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM users", got)
}

func TestRewriteLeavesSelectUnchanged(t *testing.T) {
	got, err := Rewriter{}.Rewrite("SELECT * FROM users")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM users", got)
}

func TestRewriteIsCaseInsensitive(t *testing.T) {
	got, err := Rewriter{}.Rewrite("sel id FROM t")
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM t", got)
}
