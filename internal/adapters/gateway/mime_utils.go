package gateway

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// messageContent is what the MIME walk pulls out of a parsed message.
type messageContent struct {
	Text            string
	HTML            string
	AttachmentNames []string
}

// extractContent walks the MIME structure of a message and collects the
// text and HTML bodies plus attachment file names. Nested multiparts are
// descended one level at a time; anything unreadable is skipped rather
// than failing the whole message.
func extractContent(msg *mail.Message) (*messageContent, error) {
	content := &messageContent{}
	contentType := msg.Header.Get("Content-Type")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		bodyBytes, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, readErr
		}
		if strings.Contains(strings.ToLower(contentType), "text/html") {
			content.HTML = string(bodyBytes)
		} else {
			content.Text = string(bodyBytes)
		}
		return content, nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		bodyBytes, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, readErr
		}
		content.Text = string(bodyBytes)
		return content, nil
	}

	collectParts(multipart.NewReader(msg.Body, boundary), content, 0)
	return content, nil
}

// maxMultipartDepth bounds recursion into nested multipart bodies.
const maxMultipartDepth = 5

func collectParts(mr *multipart.Reader, content *messageContent, depth int) {
	if depth > maxMultipartDepth {
		return
	}

	var textBuf, htmlBuf bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		if name := partFilename(part); name != "" {
			content.AttachmentNames = append(content.AttachmentNames, name)
			continue
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			partType = "text/plain"
		}

		switch {
		case strings.HasPrefix(partType, "multipart/"):
			if boundary, ok := partParams["boundary"]; ok {
				collectParts(multipart.NewReader(part, boundary), content, depth+1)
			}
		case strings.HasPrefix(partType, "text/plain"):
			if partBytes, err := io.ReadAll(part); err == nil {
				textBuf.Write(partBytes)
				textBuf.WriteString("\n")
			}
		case strings.HasPrefix(partType, "text/html"):
			if partBytes, err := io.ReadAll(part); err == nil {
				htmlBuf.Write(partBytes)
			}
		}
	}

	if textBuf.Len() > 0 {
		content.Text += textBuf.String()
	}
	if htmlBuf.Len() > 0 {
		content.HTML += htmlBuf.String()
	}
}

// partFilename returns the attachment file name of a part, or "" for
// inline content.
func partFilename(part *multipart.Part) string {
	disposition, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err == nil && disposition == "attachment" {
		if name, ok := params["filename"]; ok {
			return decodeHeader(name)
		}
	}
	if name := part.FileName(); name != "" {
		return decodeHeader(name)
	}
	return ""
}

// decodeHeader decodes RFC 2047 encoded words, returning the input
// unchanged when it isn't encoded or fails to decode.
func decodeHeader(value string) string {
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
