// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
)

// ConfigFile is the default name of the persisted addon config.
const ConfigFile = "addons.json"

// ConfigEntry is the persisted preference set for one addon signature.
type ConfigEntry struct {
	Signature             int32 `json:"Signature" jsonschema:"required,description=Signature the addon declares"`
	IsLoaded              bool  `json:"IsLoaded" jsonschema:"description=Whether the addon should load"`
	IsPausingUpdates      bool  `json:"IsPausingUpdates" jsonschema:"description=Skip update checks"`
	IsDisabledUntilUpdate bool  `json:"IsDisabledUntilUpdate" jsonschema:"description=Keep unloaded until a new build arrives"`
	AllowPrereleases      bool  `json:"AllowPrereleases" jsonschema:"description=Accept prerelease builds"`
	IsFavorite            bool  `json:"IsFavorite,omitempty" jsonschema:"description=Sort ahead of addons with the same name"`
}

// Preferences is the root of addons.json.
type Preferences []ConfigEntry

var (
	configSchemaOnce sync.Once
	configSchema     *jschema.Schema
	configSchemaErr  error
)

// GenerateConfigSchema returns the JSON Schema of addons.json.
func GenerateConfigSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Preferences{})
	schema.ID = jsonschema.ID(ConfigSchemaID)
	schema.Title = "Nexus Addon Config"
	schema.Description = "Persisted per-addon preferences"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "marshal config schema")
	}
	return data, nil
}

// ConfigSchemaID is the $id of the generated schema.
const ConfigSchemaID = "https://raidcore.gg/schemas/nexus/addons.schema.json"

func compiledConfigSchema() (*jschema.Schema, error) {
	configSchemaOnce.Do(func() {
		raw, err := GenerateConfigSchema()
		if err != nil {
			configSchemaErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			configSchemaErr = oops.Wrapf(err, "parse config schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("addons.schema.json", doc); err != nil {
			configSchemaErr = oops.Wrapf(err, "add config schema")
			return
		}
		configSchema, configSchemaErr = c.Compile("addons.schema.json")
	})
	return configSchema, configSchemaErr
}

// ValidateConfig checks raw addons.json content against the schema.
func ValidateConfig(data []byte) error {
	sch, err := compiledConfigSchema()
	if err != nil {
		return err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return oops.Wrapf(err, "invalid JSON")
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Wrapf(err, "schema validation failed")
	}
	return nil
}

// ReadConfig reads and validates the config at path. A missing file is an
// empty config.
func ReadConfig(path string) (Preferences, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the configured config location
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrConfig(path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if err := ValidateConfig(data); err != nil {
		return nil, ErrConfig(path, err)
	}
	var cfg Preferences
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, ErrConfig(path, err)
	}
	return cfg, nil
}

// WriteConfig replaces the config at path atomically.
func WriteConfig(path string, cfg Preferences) error {
	if cfg == nil {
		cfg = Preferences{}
	}
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return ErrConfig(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ErrConfig(path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return ErrConfig(path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return ErrConfig(path, err)
	}
	if err := tmp.Close(); err != nil {
		return ErrConfig(path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return ErrConfig(path, err)
	}
	return nil
}

// snapshotConfig builds the persisted form of every addon worth keeping.
func snapshotConfig(addons []*Addon) Preferences {
	cfg := Preferences{}
	seen := map[int32]bool{}
	for _, a := range addons {
		if a.IsFlaggedForUninstall || a.State == StateNotLoadedDuplicate {
			continue
		}
		e := a.configEntry()
		if e.Signature == 0 || seen[e.Signature] {
			continue
		}
		seen[e.Signature] = true
		cfg = append(cfg, e)
	}
	return cfg
}
