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

// Package config is the TOML-tagged settings struct the sqlmockd binary
// loads, the same flat toml-tag shape FrontendParameters uses, scoped
// down to this server's own tunables instead of a whole cluster's.
package config

// Parameters is every setting the server reads at startup. Flags bound
// by the CLI layer override whatever a config file supplies, and an
// empty zero value always means "use the default applied in Defaults".
type Parameters struct {
	// DocumentPath is the YAML document describing the database to
	// serve; required.
	DocumentPath string `toml:"documentPath"`

	// Watch enables hot reload of DocumentPath via fsnotify.
	Watch bool `toml:"watch"`

	//listening ip for both protocol families
	Host string `toml:"host"`

	//port protocol family A (Postgres wire) listens on
	PgPort int64 `toml:"pgPort"`

	//port protocol family B (MySQL wire) listens on
	MysqlPort int64 `toml:"mysqlPort"`

	//root name, used when the document supplies no auth override
	RootName string `toml:"rootname"`

	//root password, used when the document supplies no auth override
	RootPassword string `toml:"rootpassword"`

	//maximum number of simultaneously served connections across every listener
	MaxConnections int64 `toml:"maxConnections"`

	//default is 'info'. the level of log.
	LogLevel string `toml:"logLevel"`

	//default is ''. the file logs are written to; stderr if empty.
	LogFilename string `toml:"logFilename"`

	//default is 100MB. the maximum of log file size
	LogMaxSize int64 `toml:"logMaxSize"`

	//default is 0 (no limit). the maximum days of log file to be kept
	LogMaxDays int64 `toml:"logMaxDays"`

	//default is 0 (no limit). the maximum numbers of log file to be retained
	LogMaxBackups int64 `toml:"logMaxBackups"`
}

// Defaults returns the zero-config starting point; config-file and flag
// overrides are applied on top of it.
func Defaults() Parameters {
	return Parameters{
		Host:           "0.0.0.0",
		PgPort:         5432,
		MysqlPort:      3306,
		MaxConnections: 10,
		LogLevel:       "info",
		LogMaxSize:     100,
	}
}
