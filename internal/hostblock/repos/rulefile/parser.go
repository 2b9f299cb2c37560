package rulefile

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/hostblock/internal/hostblock/common/log"
	"github.com/haukened/hostblock/internal/hostblock/common/utils"
	"github.com/haukened/hostblock/internal/hostblock/domain"
)

// Parse reads a rule file and returns BlockRules in file order.
//
// Grammar:
// - One rule per line: "<address> <domain-or-wildcard>"
// - Blank lines and lines whose first character is '#' are ignored
// - Trailing whitespace (space, tab, CR) is stripped
// - Lines that do not tokenize as exactly two fields are skipped with a warning
// - The domain field is lowercase-normalized; a leading '.' marks a wildcard
//
// Duplicate keys are NOT collapsed here: file order is preserved so the
// index build can apply last-line-wins semantics.
func Parse(r io.Reader, source string, logger logpkg.Logger) ([]domain.BlockRule, error) {
	scanner := bufio.NewScanner(r)

	out := make([]domain.BlockRule, 0, 256)

	logger.Debug(map[string]any{"source": source}, "parse_rules_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Blank and full-line comments, checked before any trimming to
		// mirror the "first character is #" rule.
		if line == "" || line[0] == '#' {
			continue
		}

		line = strings.TrimRight(line, " \t\r\n")
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			logger.Warn(map[string]any{
				"source": source,
				"line":   lineNum,
				"fields": len(fields),
			}, "invalid rule line, skipping")
			continue
		}

		key := utils.NormalizeDomain(fields[1])

		rule, err := domain.NewBlockRule(key, fields[0])
		if err != nil {
			logger.Warn(map[string]any{
				"source": source,
				"line":   lineNum,
				"error":  err.Error(),
			}, "invalid rule line, skipping")
			continue
		}

		out = append(out, rule)
		logger.Debug(map[string]any{"line": lineNum, "key": rule.Key, "address": rule.Address}, "emit_rule")
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_rules_scan_error")
		return nil, err
	}

	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_rules_done")
	return out, nil
}
