package view

import "github.com/microcosm-cc/bluemonday"

// ugcPolicy is bluemonday's user-generated-content policy plus images, which
// covers what the rich-text editor emits (headings, lists, links, emphasis).
var ugcPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	return p
}()

// SanitizeUGC strips anything dangerous from rich-text input before it is
// stored. Output is safe to render unescaped.
func SanitizeUGC(html string) string {
	return ugcPolicy.Sanitize(html)
}
