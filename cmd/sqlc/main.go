// Command sqlc генерирует код репозиториев: для каждого queries.sql из .sqlc.base.yaml
// собирается отдельный sqlc.yaml с пакетом по имени каталога.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const defaultConfigName = "sqlc.yaml"

// packageFor: internal/modules/events/service/pg/sql/queries.sql -> "sql"
func packageFor(file string) (dir, pkg string, err error) {
	dir, _ = filepath.Split(file)
	parts := strings.Split(strings.TrimSuffix(dir, string(os.PathSeparator)), string(os.PathSeparator))
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return "", "", errors.Errorf("no package directory for %q", file)
	}
	return dir, parts[len(parts)-1], nil
}

func buildConfig(version string, engine *viper.Viper, file string) ([]byte, error) {
	dir, pkg, err := packageFor(file)
	if err != nil {
		return nil, err
	}
	engine.Set("gen.go.package", pkg)
	engine.Set("gen.go.out", dir)
	engine.Set("queries", file)

	engineSettings := engine.AllSettings()
	delete(engineSettings, "source")

	resultConfig := viper.New()
	resultConfig.Set("version", version)
	resultConfig.Set("sql", []interface{}{engineSettings})

	bs, err := yaml.Marshal(resultConfig.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config to yaml")
	}
	return bs, nil
}

func writeConfig(content []byte) (string, error) {
	_ = os.Remove(defaultConfigName)
	if err := os.WriteFile(defaultConfigName, content, 0o644); err != nil {
		return "", errors.Wrap(err, "write sqlc.yaml")
	}
	return defaultConfigName, nil
}

func callSqlc(config string) error {
	cmd := exec.Command("sqlc", "generate", "--file", config)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "call sqlc: %s", string(output))
	}
	return nil
}

func run(baseName string) error {
	base := viper.New()
	base.SetConfigName(baseName)
	base.SetConfigType("yaml")
	base.AddConfigPath(".")
	if err := base.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read base config")
	}

	patterns := base.GetStringSlice("sql.0.source")
	if len(patterns) == 0 {
		return errors.New("has no sql.0.source in config")
	}
	files := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return errors.Wrapf(err, "glob %q", pattern)
		}
		files = append(files, f...)
	}

	engine := base.Sub("sql.0")
	engine.Set("schema", base.GetString("sql.0.schema"))

	defer os.Remove(defaultConfigName)
	for _, file := range files {
		content, err := buildConfig(base.GetString("version"), engine, file)
		if err != nil {
			return errors.Wrapf(err, "config for %s", file)
		}
		configFile, err := writeConfig(content)
		if err != nil {
			return err
		}
		if err := callSqlc(configFile); err != nil {
			return err
		}
		fmt.Printf("%s file complete\n", file)
	}
	return nil
}

func main() {
	baseName := flag.String("base", ".sqlc.base", "base config name without extension")
	flag.Parse()

	if err := run(*baseName); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("done")
}
