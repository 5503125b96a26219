package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	toml := "extension = \".rx\"\npath = [\"/opt/rexx\"]\nenvironment = \"rexx\"\ndigits = 20\nlog_level = \"debug\"\n"
	yml := "extension: .cmd\ndigits: 12\nsql_driver: postgres\nsql_dsn: postgres://localhost/db\n"

	cases := []struct {
		name    string
		file    string
		body    string
		env     map[string]string
		want    func(Configuration) bool
		wantErr string
	}{
		{
			name: "defaults",
			want: func(c Configuration) bool {
				return c.Extension == ".rexx" && c.DefaultEnv == "SYSTEM" && c.Digits == 9 && c.Path == nil
			},
		},
		{
			name: "toml file",
			file: "rexx.toml",
			body: toml,
			want: func(c Configuration) bool {
				return c.Extension == ".rx" && c.DefaultEnv == "REXX" && c.Digits == 20 &&
					c.LogLevel == "debug" && reflect.DeepEqual(c.Path, []string{"/opt/rexx"})
			},
		},
		{
			name: "yaml file",
			file: "rexx.yaml",
			body: yml,
			want: func(c Configuration) bool {
				return c.Extension == ".cmd" && c.Digits == 12 && c.SQLDriver == "postgres" &&
					c.SQLDSN == "postgres://localhost/db"
			},
		},
		{
			name: "environment overrides file",
			file: "rexx.toml",
			body: toml,
			env: map[string]string{
				"REXXEXT":      "rex",
				"REXXPATH":     "/a" + string(filepath.ListSeparator) + "/b",
				"REXX_SQL_DSN": "file::memory:",
			},
			want: func(c Configuration) bool {
				return c.Extension == ".rex" && c.SQLDSN == "file::memory:" &&
					reflect.DeepEqual(c.Path, []string{"/opt/rexx", "/a", "/b"})
			},
		},
		{
			name:    "unknown toml key",
			file:    "bad.toml",
			body:    "colour = \"red\"\n",
			wantErr: "unknown setting",
		},
		{
			name:    "unknown yaml key",
			file:    "bad.yml",
			body:    "colour: red\n",
			wantErr: "parse",
		},
		{
			name:    "bad digits",
			file:    "rexx.toml",
			body:    "digits = 0\n",
			wantErr: "digits",
		},
		{
			name:    "bad driver",
			file:    "rexx.toml",
			body:    "sql_driver = \"oracle\"\n",
			wantErr: "sql driver",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := ""
			if tc.file != "" {
				path = write(t, tc.file, tc.body)
			}
			cfg, err := Load(path, env(tc.env))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tc.want(cfg) {
				t.Fatalf("unexpected configuration %+v", cfg)
			}
			if cfg.Source != path {
				t.Fatalf("Source = %q, want %q", cfg.Source, path)
			}
		})
	}
}

func TestLoadFromEnvironmentFile(t *testing.T) {
	p := write(t, "conf.toml", "trace = \"R\"\n")
	cfg, err := Load("", env(map[string]string{"REXX_CONFIG": p}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trace != "R" {
		t.Fatalf("Trace = %q", cfg.Trace)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml"), env(nil)); err == nil {
		t.Fatal("expected an error")
	}
}
