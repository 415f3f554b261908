package catalog

import "strings"

// RichText is a block-structured rich text field as stored by the CMS.
// The sync pipeline only ever needs its plain-text projection.
type RichText []Block

// Block is one paragraph-level unit of rich text.
type Block struct {
	Type     string `json:"type" bson:"type"`
	Style    string `json:"style,omitempty" bson:"style,omitempty"`
	Children []Span `json:"children" bson:"children"`
}

// Span is an inline run of text within a block.
type Span struct {
	Text string `json:"text" bson:"text"`
}

// Plain flattens rich text to plain text: spans concatenate within a
// block, blocks join with blank lines. Non-text blocks contribute nothing.
func (rt RichText) Plain() string {
	var blocks []string
	for _, b := range rt {
		if b.Type != "" && b.Type != "block" {
			continue
		}
		var sb strings.Builder
		for _, c := range b.Children {
			sb.WriteString(c.Text)
		}
		if sb.Len() > 0 {
			blocks = append(blocks, sb.String())
		}
	}
	return strings.Join(blocks, "\n\n")
}
