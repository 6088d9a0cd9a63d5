package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestPackageFor(t *testing.T) {
	file := filepath.Join("internal", "modules", "events", "service", "pg", "sql", "queries.sql")
	dir, pkg, err := packageFor(file)
	require.NoError(t, err)
	assert.Equal(t, "sql", pkg)
	assert.Equal(t, filepath.Join("internal", "modules", "events", "service", "pg", "sql")+string(filepath.Separator), dir)

	_, _, err = packageFor("queries.sql")
	require.Error(t, err)
}

func TestBuildConfig(t *testing.T) {
	engine := viper.New()
	engine.Set("engine", "postgresql")
	engine.Set("schema", "migrations")
	engine.Set("source", []string{"internal/modules/*/service/pg/sql/queries.sql"})
	engine.Set("gen.go.sql_package", "pgx/v5")

	file := filepath.Join("internal", "modules", "events", "service", "pg", "sql", "queries.sql")
	bs, err := buildConfig("2", engine, file)
	require.NoError(t, err)

	var out struct {
		Version string `yaml:"version"`
		SQL     []struct {
			Engine  string `yaml:"engine"`
			Schema  string `yaml:"schema"`
			Queries string `yaml:"queries"`
			Source  any    `yaml:"source"`
			Gen     struct {
				Go struct {
					Package    string `yaml:"package"`
					SQLPackage string `yaml:"sql_package"`
				} `yaml:"go"`
			} `yaml:"gen"`
		} `yaml:"sql"`
	}
	require.NoError(t, yaml.Unmarshal(bs, &out))
	assert.Equal(t, "2", out.Version)
	require.Len(t, out.SQL, 1)
	assert.Equal(t, "postgresql", out.SQL[0].Engine)
	assert.Equal(t, file, out.SQL[0].Queries)
	assert.Equal(t, "sql", out.SQL[0].Gen.Go.Package)
	assert.Equal(t, "pgx/v5", out.SQL[0].Gen.Go.SQLPackage)
	assert.Nil(t, out.SQL[0].Source)
}
