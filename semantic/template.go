// Copyright (c) Microsoft. All rights reserved.

package semantic

import (
	"context"
	"log/slog"
	"regexp"
)

// variableBlock matches a {{$name}} block of a prompt template.
var variableBlock = regexp.MustCompile(`\{\{\s*\$([A-Za-z0-9_]+)\s*\}\}`)

// render replaces the variable blocks of template with vars. A variable
// with no value renders as the empty string. Any other text, including
// other {{...}} blocks, is kept as written.
func render(ctx context.Context, logger *slog.Logger, template string, vars map[string]string) string {
	return variableBlock.ReplaceAllStringFunc(template, func(block string) string {
		name := variableBlock.FindStringSubmatch(block)[1]
		v, ok := vars[name]
		if !ok {
			logger.WarnContext(ctx, "variable not found", "variable", name)
		}
		return v
	})
}
