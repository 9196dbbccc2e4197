// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// GenerateCUE renders cfg as a variantc.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// variantc configuration\n\n")

	quoted := make([]string, len(cfg.Tenants))
	for i, t := range cfg.Tenants {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	fmt.Fprintf(&sb, "tenants: [%s]\n\n", strings.Join(quoted, ", "))

	fmt.Fprintf(&sb, "clientAppPath:      %q\n", cfg.ClientAppPath)
	fmt.Fprintf(&sb, "aliasPathSeparator: %q\n", cfg.AliasPathSeparator)
	fmt.Fprintf(&sb, "extension:          %q\n", cfg.Extension)
	fmt.Fprintf(&sb, "aliasRule:          %q\n\n", cfg.AliasRule)

	fmt.Fprintf(&sb, "tsConfigPath:     %q\n", cfg.TsConfigPath)
	fmt.Fprintf(&sb, "tsConfigAotPath:  %q\n", cfg.TsConfigAotPath)
	fmt.Fprintf(&sb, "tsConfigBasePath: %q\n", cfg.TsConfigBasePath)
	fmt.Fprintf(&sb, "mainPath:         %q\n", cfg.MainPath)
	fmt.Fprintf(&sb, "mainAotPath:      %q\n", cfg.MainAotPath)
	fmt.Fprintf(&sb, "aotPath:          %q\n", cfg.AotPath)

	if len(cfg.Ignore) > 0 {
		sb.WriteString("\nignore: [\n")
		for _, pat := range cfg.Ignore {
			fmt.Fprintf(&sb, "\t%q,\n", pat)
		}
		sb.WriteString("]\n")
	}
	fmt.Fprintf(&sb, "\nincludeGeneric: %v\n", cfg.IncludeGeneric)

	sb.WriteString("\nwatch: {\n")
	if cfg.Watch.Debounce != "" {
		fmt.Fprintf(&sb, "\tdebounce:    %q\n", cfg.Watch.Debounce)
	}
	fmt.Fprintf(&sb, "\tclearScreen: %v\n", cfg.Watch.ClearScreen)
	sb.WriteString("}\n")

	return sb.String()
}

// MarshalTOML renders cfg as TOML.
func MarshalTOML(cfg *Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return out, nil
}
