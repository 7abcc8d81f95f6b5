// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/config"
	"github.com/memsqld/memsqld/internal/docloader"
	"github.com/memsqld/memsqld/internal/logsetup"
	"github.com/memsqld/memsqld/internal/mysqlwire"
	"github.com/memsqld/memsqld/internal/pgwire"
	"github.com/memsqld/memsqld/internal/server"
	"github.com/memsqld/memsqld/internal/store"
)

var (
	cfgFile   string
	protocols string
	cfg       = config.Defaults()
)

var rootCmd = &cobra.Command{
	Use:   "sqlmockd",
	Short: "sqlmockd serves a declarative YAML document over Postgres and MySQL wire protocols",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	applyEnvOverrides(&cfg)

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "TOML config file (flags override file values)")
	flags.StringVar(&cfg.DocumentPath, "document", cfg.DocumentPath, "YAML document describing the database to serve")
	flags.BoolVar(&cfg.Watch, "watch", cfg.Watch, "hot-reload the document on change")
	flags.StringVar(&cfg.Host, "host", cfg.Host, "listen address for both protocol families")
	flags.Int64Var(&cfg.PgPort, "pg-port", cfg.PgPort, "Postgres wire protocol port")
	flags.Int64Var(&cfg.MysqlPort, "mysql-port", cfg.MysqlPort, "MySQL wire protocol port")
	flags.StringVar(&cfg.RootName, "rootname", cfg.RootName, "username required when the document declares no auth override")
	flags.StringVar(&cfg.RootPassword, "rootpassword", cfg.RootPassword, "password required when the document declares no auth override")
	flags.Int64Var(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "maximum simultaneously served connections")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	flags.StringVar(&cfg.LogFilename, "log-file", cfg.LogFilename, "log file path; stderr if empty")
	flags.StringVar(&protocols, "protocols", "pg,mysql", "comma-separated wire protocols to serve: pg, mysql")
}

// applyEnvOverrides mirrors MEMSQLD_<FIELD> environment variables onto
// cfg, the same flat env-var-prefix convention bunbase's CLI config
// loader applies via viper, checked before the CLI flags are defined so
// an explicit flag on the command line always wins over the environment.
func applyEnvOverrides(cfg *config.Parameters) {
	v := viper.New()
	v.SetEnvPrefix("memsqld")
	v.AutomaticEnv()

	if s := v.GetString("document"); s != "" {
		cfg.DocumentPath = s
	}
	if s := v.GetString("host"); s != "" {
		cfg.Host = s
	}
	if n := v.GetInt64("pg_port"); n != 0 {
		cfg.PgPort = n
	}
	if n := v.GetInt64("mysql_port"); n != 0 {
		cfg.MysqlPort = n
	}
	if s := v.GetString("rootname"); s != "" {
		cfg.RootName = s
	}
	if s := v.GetString("rootpassword"); s != "" {
		cfg.RootPassword = s
	}
}

func run() error {
	if cfgFile != "" {
		explicit := map[string]string{}
		rootCmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })
		if _, err := toml.DecodeFile(cfgFile, &cfg); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		// Flags given on the command line win over the file's values.
		for name, val := range explicit {
			if err := rootCmd.Flags().Set(name, val); err != nil {
				return fmt.Errorf("re-apply flag --%s: %w", name, err)
			}
		}
	}
	if cfg.DocumentPath == "" {
		return fmt.Errorf("a document is required: pass --document or set documentPath in --config")
	}

	log, err := logsetup.New(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(catalog.NewDatabase("", nil))
	if err := docloader.Load(ctx, cfg.DocumentPath, st); err != nil {
		return fmt.Errorf("load document %s: %w", cfg.DocumentPath, err)
	}
	log.Info("document loaded", zap.String("path", cfg.DocumentPath), zap.String("database", st.Snapshot().Name))

	if cfg.Watch {
		go func() {
			if err := docloader.Watch(ctx, cfg.DocumentPath, st, log); err != nil {
				log.Error("document watch stopped", zap.Error(err))
			}
		}()
	}

	wantPg, wantMysql := parseProtocolSelector(protocols)
	if !wantPg && !wantMysql {
		return fmt.Errorf("--protocols must name at least one of: pg, mysql")
	}

	sup := server.New(server.Config{
		MaxConnections: cfg.MaxConnections,
		PgCreds:        pgwire.Creds{Username: cfg.RootName, Password: cfg.RootPassword},
		MysqlCreds:     mysqlwire.Creds{Username: cfg.RootName, Password: cfg.RootPassword},
	}, st, log)

	var listeners []server.Listener
	if wantPg {
		pgListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.PgPort))
		if err != nil {
			return fmt.Errorf("listen pg %d: %w", cfg.PgPort, err)
		}
		listeners = append(listeners, server.Listener{Net: pgListener, Protocol: server.ProtocolPostgres})
		log.Info("sqlmockd listening", zap.String("protocol", "pg"), zap.String("addr", pgListener.Addr().String()))
	}
	if wantMysql {
		mysqlListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.MysqlPort))
		if err != nil {
			return fmt.Errorf("listen mysql %d: %w", cfg.MysqlPort, err)
		}
		listeners = append(listeners, server.Listener{Net: mysqlListener, Protocol: server.ProtocolMySQL})
		log.Info("sqlmockd listening", zap.String("protocol", "mysql"), zap.String("addr", mysqlListener.Addr().String()))
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigchan
		log.Info("shutdown signal received")
		cancel()
	}()

	return sup.Serve(ctx, listeners)
}

// parseProtocolSelector splits the --protocols flag into the two wire
// families this server can speak; protocol family C (parcel-based) is
// never one of them, per the Non-goal that keeps it an external,
// pluggable dialect translator.
func parseProtocolSelector(spec string) (pg, mysql bool) {
	for _, p := range strings.Split(spec, ",") {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "pg", "postgres", "postgresql":
			pg = true
		case "mysql":
			mysql = true
		}
	}
	return pg, mysql
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "sqlmockd: panic: %v\n", r)
			os.Exit(2)
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
