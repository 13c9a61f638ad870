package inventory

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoHostsKey is returned when the host list has no "hosts:" line to insert
// under.
var ErrNoHostsKey = errors.New(`no "hosts:" key found in inventory`)

// insertHost adds "host:" on the line after the first "hosts:" line, indented
// two spaces deeper. Content already mentioning "host:" anywhere is returned
// unchanged. Every other byte is preserved.
func insertHost(data []byte, host string) ([]byte, bool, error) {
	text := string(data)
	if strings.Contains(text, host+":") {
		return data, false, nil
	}

	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "hosts:" {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " \t")) + 2
		entry := fmt.Sprintf("%s%s:\n", strings.Repeat(" ", indent), host)
		if !strings.HasSuffix(line, "\n") {
			lines[i] = line + "\n"
		}

		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:i+1]...)
		out = append(out, entry)
		out = append(out, lines[i+1:]...)
		return []byte(strings.Join(out, "")), true, nil
	}

	return nil, false, ErrNoHostsKey
}

// removeHost deletes host from all.hosts. Documents without an all.hosts key
// fall back to the first "hosts" mapping. Child group entries are left alone.
func removeHost(data []byte, host string) ([]byte, bool, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, false, err
	}

	if !deleteKey(hostsMapping(doc), host) {
		return data, false, nil
	}

	out, err := encodeDocument(doc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func hostsMapping(doc *yaml.Node) *yaml.Node {
	if all := lookup(doc.Content[0], "all"); all != nil && all.Kind == yaml.MappingNode {
		if hosts := lookup(all, "hosts"); hosts != nil {
			return hosts
		}
	}
	return findFirst(doc, "hosts")
}
