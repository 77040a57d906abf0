package manifest

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PHPFileName is the file the module loader reads inside a package archive.
const PHPFileName = "manifest.php"

const phpIndent = "    "

var phpIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PHP renders the document as the module loader's manifest.php: one
// "$<key> = [...];" assignment per top-level key, in document order. Values
// become array literals; nothing is evaluated.
func (d *Document) PHP() ([]byte, error) {
	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 {
		return nil, fmt.Errorf("empty manifest document")
	}
	top := d.root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("manifest document is not a mapping")
	}

	var buf bytes.Buffer
	buf.WriteString("<?php\n\n")
	for i := 0; i+1 < len(top.Content); i += 2 {
		name := top.Content[i].Value
		if !phpIdentifier.MatchString(name) {
			return nil, fmt.Errorf("top-level key %q is not a valid PHP variable name", name)
		}
		buf.WriteString("$" + name + " = ")
		if err := writePHPValue(&buf, top.Content[i+1], 0); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		buf.WriteString(";\n\n")
	}
	return buf.Bytes(), nil
}

func writePHPValue(buf *bytes.Buffer, n *yaml.Node, depth int) error {
	switch n.Kind {
	case yaml.AliasNode:
		return writePHPValue(buf, n.Alias, depth)
	case yaml.MappingNode:
		buf.WriteString("[\n")
		for i := 0; i+1 < len(n.Content); i += 2 {
			buf.WriteString(strings.Repeat(phpIndent, depth+1))
			buf.WriteString(phpKey(n.Content[i]) + " => ")
			if err := writePHPValue(buf, n.Content[i+1], depth+1); err != nil {
				return err
			}
			buf.WriteString(",\n")
		}
		buf.WriteString(strings.Repeat(phpIndent, depth) + "]")
	case yaml.SequenceNode:
		buf.WriteString("[\n")
		for i, item := range n.Content {
			buf.WriteString(strings.Repeat(phpIndent, depth+1))
			buf.WriteString(strconv.Itoa(i) + " => ")
			if err := writePHPValue(buf, item, depth+1); err != nil {
				return err
			}
			buf.WriteString(",\n")
		}
		buf.WriteString(strings.Repeat(phpIndent, depth) + "]")
	case yaml.ScalarNode:
		buf.WriteString(phpScalar(n))
	default:
		return fmt.Errorf("unsupported node at line %d", n.Line)
	}
	return nil
}

func phpKey(n *yaml.Node) string {
	if n.ShortTag() == "!!int" {
		if _, err := strconv.Atoi(n.Value); err == nil {
			return n.Value
		}
	}
	return phpString(n.Value)
}

// phpScalar renders a scalar. Floats keep their source text as a string so
// versions such as 1.10 reach the module loader unchanged.
func phpScalar(n *yaml.Node) string {
	switch n.ShortTag() {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return strconv.FormatBool(b)
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return strconv.FormatInt(i, 10)
		}
	case "!!null":
		return "null"
	}
	return phpString(n.Value)
}

// phpString quotes s as a single-quoted PHP literal.
func phpString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
