package segment

import "strings"

// ParseSegmentsFromCQ parses the legacy inline CQ-code string form,
// e.g. "hello [CQ:at,qq=123] world&#91;bracket&#93;". Plain text runs
// become "text" segments; "[CQ:type,k=v,...]" runs become functional
// segments. Escaping follows the CQ-code convention: & -> &amp;,
// [ -> &#91;, ] -> &#93; everywhere, and additionally , -> &#44;
// inside parameter values.
func ParseSegmentsFromCQ(s string) (Message, error) {
	var msg Message
	var textBuf strings.Builder

	flushText := func() {
		if textBuf.Len() == 0 {
			return
		}
		msg = append(msg, Text(unescapeCQ(textBuf.String(), false)))
		textBuf.Reset()
	}

	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "[CQ:")
		if start < 0 {
			textBuf.WriteString(s[i:])
			break
		}
		start += i
		end := strings.Index(s[start:], "]")
		if end < 0 {
			// Unterminated; treat the rest as literal text.
			textBuf.WriteString(s[i:])
			break
		}
		end += start

		textBuf.WriteString(s[i:start])
		flushText()

		body := s[start+len("[CQ:") : end]
		seg, err := parseCQBody(body)
		if err != nil {
			return nil, err
		}
		msg = append(msg, seg)

		i = end + 1
	}
	flushText()

	return msg, nil
}

func parseCQBody(body string) (Segment, error) {
	parts := strings.Split(body, ",")
	typ := parts[0]
	data := map[string]string{}
	for _, kv := range parts[1:] {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key := kv[:eq]
		val := unescapeCQ(kv[eq+1:], true)
		data[key] = val
	}
	return Segment{Type: typ, Data: data}, nil
}

func unescapeCQ(s string, inParam bool) string {
	r := strings.NewReplacer("&#44;", ",", "&#91;", "[", "&#93;", "]", "&amp;", "&")
	if !inParam {
		// Comma escaping only applies within parameter values; plain
		// text commas are never escaped, so leave "&#44;" (if any
		// literally typed by a sender) untouched there.
		r = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&amp;", "&")
	}
	return r.Replace(s)
}

func escapeCQ(s string, inParam bool) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "[", "&#91;")
	s = strings.ReplaceAll(s, "]", "&#93;")
	if inParam {
		s = strings.ReplaceAll(s, ",", "&#44;")
	}
	return s
}

// RenderCQ renders m back into the legacy inline CQ-code string form.
func RenderCQ(m Message) string {
	var b strings.Builder
	for _, seg := range m {
		if seg.Type == "text" {
			b.WriteString(escapeCQ(seg.Data["text"], false))
			continue
		}
		b.WriteString("[CQ:")
		b.WriteString(seg.Type)
		for k, v := range seg.Data {
			b.WriteByte(',')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(escapeCQ(v, true))
		}
		b.WriteByte(']')
	}
	return b.String()
}
