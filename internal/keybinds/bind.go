// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package keybinds

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// Error codes for keybind failures.
const (
	CodeInvalidBind = "KEYBIND_INVALID_BIND"
	CodeInvalidID   = "KEYBIND_INVALID_ID"
	CodeConflict    = "KEYBIND_CONFLICT"
	CodeNotFound    = "KEYBIND_NOT_FOUND"
)

// Unbound is the normalized form of an empty bind.
const Unbound = ""

var bindLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Plus", Pattern: `\+`},
	{Name: "Key", Pattern: `[^+\s]+`},
	{Name: "whitespace", Pattern: `\s+`},
})

// bindAST is a bind as typed: key names joined by '+'.
//
// Grammar: key { "+" key }
type bindAST struct {
	Keys []string `parser:"@Key ( '+' @Key )*"`
}

var bindParser = participle.MustBuild[bindAST](participle.Lexer(bindLexer))

var modifierOrder = []string{"CTRL", "ALT", "SHIFT"}

var modifierAliases = map[string]string{
	"CTRL":    "CTRL",
	"CONTROL": "CTRL",
	"ALT":     "ALT",
	"MENU":    "ALT",
	"SHIFT":   "SHIFT",
}

// ParseBind normalizes a bind such as "shift + ctrl+k" into "CTRL+SHIFT+K".
// The empty string and "(null)" both mean unbound.
func ParseBind(bind string) (string, error) {
	trimmed := strings.TrimSpace(bind)
	if trimmed == "" || strings.EqualFold(trimmed, "(null)") {
		return Unbound, nil
	}

	ast, err := bindParser.ParseString("", trimmed)
	if err != nil {
		return "", errInvalidBind(bind, err.Error())
	}

	mods := map[string]bool{}
	key := ""
	for _, part := range ast.Keys {
		part = strings.ToUpper(part)
		if mod, ok := modifierAliases[part]; ok {
			mods[mod] = true
			continue
		}
		if key != "" {
			return "", errInvalidBind(bind, "more than one non-modifier key")
		}
		key = part
	}
	if key == "" {
		return "", errInvalidBind(bind, "no key")
	}

	parts := make([]string, 0, len(mods)+1)
	for _, mod := range modifierOrder {
		if mods[mod] {
			parts = append(parts, mod)
		}
	}
	return strings.Join(append(parts, key), "+"), nil
}

func errInvalidBind(bind, reason string) error {
	return oops.Code(CodeInvalidBind).
		With("bind", bind).
		Errorf("invalid keybind %q: %s", bind, reason)
}
