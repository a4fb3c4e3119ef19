package template

import "strings"

// Render replaces every occurrence of each supported {{variable}} with its value
// from ctx. Tokens naming unsupported variables are left as they are.
func Render(text string, ctx Context) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	pairs := make([]string, 0, len(allVariables)*2)
	for _, v := range allVariables {
		pairs = append(pairs, v.Placeholder(), ctx[v])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Message is a rendered title/body pair.
type Message struct {
	Title string
	Body  string
}

// RenderMessage renders both parts of a template with the same context.
func RenderMessage(title, body string, ctx Context) Message {
	return Message{
		Title: Render(title, ctx),
		Body:  Render(body, ctx),
	}
}

// UnknownPlaceholders lists {{...}} tokens in text that are not supported variables.
func UnknownPlaceholders(text string) []string {
	known := make(map[string]bool, len(allVariables))
	for _, v := range allVariables {
		known[string(v)] = true
	}

	var unknown []string
	rest := text
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			break
		}
		name := rest[start+2 : start+2+end]
		if !known[name] {
			unknown = append(unknown, name)
		}
		rest = rest[start+2+end+2:]
	}
	return unknown
}
