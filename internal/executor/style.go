// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"mvdan.cc/sh/v3/syntax"
)

const (
	separatorWidth  = 120
	timestampLayout = "[2006-01-02 15:04:05] "
)

var (
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	separator = strings.Repeat("-", separatorWidth)
)

// ShellJoin renders args as a command line that can be pasted into a shell.
func ShellJoin(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", a)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " ")
}
