package codec

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/labjournal/internal/jerr"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// sectionTerminator marks the end of a section on its own line.
const sectionTerminator = "---"

// Encode serializes e into its markdown section, in the fixed field
// order the grammar specifies. Absent fields are omitted; the section
// always ends with the terminator line.
func Encode(e *Entry) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n", e.ID)
	fmt.Fprintf(&b, "**Timestamp**: %s\n", e.Timestamp.UTC().Format(timestampLayout))
	fmt.Fprintf(&b, "**Author**: %s\n", e.Author)
	if e.Type == TypeAmendment {
		b.WriteString("**Type**: amendment\n")
		fmt.Fprintf(&b, "**References-Entry**: %s\n", e.ReferencesEntry)
	}
	if e.Template != "" {
		fmt.Fprintf(&b, "**Template**: %s\n", e.Template)
	}
	if e.Outcome != "" {
		fmt.Fprintf(&b, "**Outcome**: %s\n", e.Outcome)
	}
	if len(e.CausedBy) > 0 {
		fmt.Fprintf(&b, "**Caused-By**: %s\n", strings.Join(e.CausedBy, ", "))
	}
	if len(e.References) > 0 {
		fmt.Fprintf(&b, "**References**: %s\n", strings.Join(e.References, ", "))
	}
	if e.ConfigUsed != "" {
		fmt.Fprintf(&b, "**Config**: %s\n", e.ConfigUsed)
	}
	if e.LogProduced != "" {
		fmt.Fprintf(&b, "**Log**: %s\n", e.LogProduced)
	}
	b.WriteString("\n")

	if e.Type == TypeAmendment {
		writeBlock(&b, "Correction", e.Correction)
		writeBlock(&b, "Actual", e.Actual)
		writeBlock(&b, "Impact", e.Impact)
	} else {
		writeBlock(&b, "Context", e.Context)
		writeBlock(&b, "Intent", e.Intent)
		writeBlock(&b, "Action", e.Action)
		writeBlock(&b, "Observation", e.Observation)
		writeBlock(&b, "Analysis", e.Analysis)
		writeBlock(&b, "Next Steps", e.NextSteps)
	}

	writeBlock(&b, "Tool", e.Tool)
	writeBlock(&b, "Command", e.Command)
	if e.DurationMs != nil {
		writeBlock(&b, "Duration (ms)", strconv.FormatInt(*e.DurationMs, 10))
	}
	if e.ExitCode != nil {
		writeBlock(&b, "Exit Code", strconv.FormatInt(*e.ExitCode, 10))
	}
	writeBlock(&b, "Error Type", e.ErrorType)

	b.WriteString(sectionTerminator + "\n")
	return []byte(b.String())
}

func writeBlock(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "### %s\n%s\n\n", heading, body)
}

// AppendToFile returns the bytes of a daily file with e's encoded section
// appended after the existing contents.
func AppendToFile(existing []byte, e *Entry) []byte {
	out := make([]byte, 0, len(existing)+256)
	out = append(out, existing...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, Encode(e)...)
	return out
}

// Warning describes a non-fatal decode note: an unrecognized heading or
// label encountered while parsing a section, preserved verbatim rather
// than silently dropped.
type Warning struct {
	EntryID string
	Message string
}

// DecodeFile parses the concatenation of entry sections in data, tolerant
// of field order, unknown headings, and trailing whitespace. It fails
// only on a missing entry header, missing timestamp, or missing author.
func DecodeFile(data []byte) ([]*Entry, []Warning, error) {
	var entries []*Entry
	var warnings []Warning

	sections := splitSections(string(data))
	for _, s := range sections {
		if strings.TrimSpace(s) == "" {
			continue
		}
		e, warns, err := decodeSection(s)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
		warnings = append(warnings, warns...)
	}
	return entries, warnings, nil
}

// splitSections breaks a daily file into the raw text of each "## id ...
// ---" section.
func splitSections(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var cur []string
	inSection := false

	flush := func() {
		if inSection {
			sections = append(sections, strings.Join(cur, "\n"))
		}
		cur = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "## ") {
			flush()
			inSection = true
			cur = []string{line}
			continue
		}
		if inSection {
			cur = append(cur, line)
		}
	}
	flush()
	return sections
}

func decodeSection(section string) (*Entry, []Warning, error) {
	scanner := bufio.NewScanner(strings.NewReader(section))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	e := &Entry{Type: TypeEntry, Extras: map[string]string{}}
	var warnings []Warning

	if !scanner.Scan() {
		return nil, nil, jerr.New(jerr.CodecError, "empty section")
	}
	header := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(header, "## ") {
		return nil, nil, jerr.New(jerr.CodecError, "missing entry header")
	}
	e.ID = strings.TrimSpace(strings.TrimPrefix(header, "## "))

	var haveTimestamp, haveAuthor bool
	var curHeading string
	var curBody []string

	flushBody := func() {
		if curHeading == "" {
			return
		}
		body := strings.TrimRight(strings.Join(curBody, "\n"), "\n")
		body = strings.TrimSpace(body)
		assignBody(e, curHeading, body, &warnings)
		curHeading = ""
		curBody = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimRight(line, " \t\r")

		if strings.TrimSpace(trimmed) == sectionTerminator {
			flushBody()
			break
		}

		if strings.HasPrefix(strings.TrimSpace(trimmed), "### ") {
			flushBody()
			curHeading = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(trimmed), "### "))
			continue
		}

		if curHeading != "" {
			curBody = append(curBody, trimmed)
			continue
		}

		if label, value, ok := parseLabel(trimmed); ok {
			switch label {
			case "Timestamp":
				t, err := time.Parse(timestampLayout, value)
				if err != nil {
					t, err = time.Parse(time.RFC3339Nano, value)
				}
				if err != nil {
					return nil, nil, jerr.Wrap(jerr.CodecError, err, "parse timestamp for %s", e.ID)
				}
				e.Timestamp = t.UTC()
				haveTimestamp = true
			case "Author":
				e.Author = value
				haveAuthor = true
			case "Type":
				if strings.EqualFold(value, "amendment") {
					e.Type = TypeAmendment
				} else {
					e.Type = TypeEntry
				}
			case "Template":
				e.Template = value
			case "Outcome":
				e.Outcome = Outcome(value)
			case "Caused-By":
				e.CausedBy = splitList(value)
			case "References":
				e.References = splitList(value)
			case "Config":
				e.ConfigUsed = value
			case "Log":
				e.LogProduced = value
			case "References-Entry":
				e.ReferencesEntry = value
			default:
				e.Extras[label] = value
				warnings = append(warnings, Warning{EntryID: e.ID, Message: fmt.Sprintf("unknown label %q", label)})
			}
		}
	}
	flushBody()

	if !haveTimestamp {
		return nil, nil, jerr.New(jerr.CodecError, "entry %s missing timestamp", e.ID)
	}
	if !haveAuthor {
		return nil, nil, jerr.New(jerr.CodecError, "entry %s missing author", e.ID)
	}

	return e, warnings, nil
}

func assignBody(e *Entry, heading, body string, warnings *[]Warning) {
	switch heading {
	case "Context":
		e.Context = body
	case "Intent":
		e.Intent = body
	case "Action":
		e.Action = body
	case "Observation":
		e.Observation = body
	case "Analysis":
		e.Analysis = body
	case "Next Steps":
		e.NextSteps = body
	case "Outcome":
		if e.Outcome == "" {
			e.Outcome = Outcome(body)
		}
	case "Tool":
		e.Tool = body
	case "Command":
		e.Command = body
	case "Duration (ms)":
		if v, err := strconv.ParseInt(body, 10, 64); err == nil {
			e.DurationMs = &v
		}
	case "Exit Code":
		if v, err := strconv.ParseInt(body, 10, 64); err == nil {
			e.ExitCode = &v
		}
	case "Error Type":
		e.ErrorType = body
	case "Correction":
		e.Correction = body
	case "Actual":
		e.Actual = body
	case "Impact":
		e.Impact = body
	default:
		e.Extras[heading] = body
		*warnings = append(*warnings, Warning{EntryID: e.ID, Message: fmt.Sprintf("unknown heading %q", heading)})
	}
}

// parseLabel recognizes a "**Label**: value" metadata line.
func parseLabel(line string) (label, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "**") {
		return "", "", false
	}
	end := strings.Index(trimmed[2:], "**")
	if end < 0 {
		return "", "", false
	}
	label = trimmed[2 : 2+end]
	rest := strings.TrimSpace(trimmed[2+end+2:])
	rest = strings.TrimPrefix(rest, ":")
	return label, strings.TrimSpace(rest), true
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
