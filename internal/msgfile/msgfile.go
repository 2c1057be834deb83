// SPDX-License-Identifier: MIT

// Package msgfile composes and enumerates message records: the files that
// carry posts inside a channel directory. A record's name encodes creation
// time, sender, and a random id; its content is a YAML header block, a
// blank line, and free-form text. The engine never mutates existing
// records, so name collisions are the only write conflict the protocol
// has to worry about.
package msgfile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/skaphos/gitpost/internal/model"
)

// timestampLayout is the UTC prefix of every message filename. Lexical
// order of well-formed names equals chronological order.
const timestampLayout = "20060102T150405"

const idLength = 6

// Info is the decoded form of a well-formed message filename.
type Info struct {
	// Time is the encoded creation timestamp, UTC.
	Time time.Time
	// Sender is the lowercased alphanumeric sender slug.
	Sender string
	// ID is the random suffix distinguishing same-second posts.
	ID string
}

// Filename builds a new record name for the given creation time and
// sender. The sender is reduced to lowercase alphanumerics; the id suffix
// is random, so two writers posting in the same second under the same
// name still produce distinct files.
func Filename(at time.Time, sender string) string {
	return fmt.Sprintf("%s-%s-%s.md", at.UTC().Format(timestampLayout), SanitizeSender(sender), newID())
}

// ParseFilename decodes a record name. The second return is false for
// names that do not follow the protocol; callers list such entries but
// cannot order or attribute them.
func ParseFilename(name string) (Info, bool) {
	base, found := strings.CutSuffix(name, ".md")
	if !found {
		return Info{}, false
	}
	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 {
		return Info{}, false
	}
	at, err := time.Parse(timestampLayout, parts[0])
	if err != nil {
		return Info{}, false
	}
	if parts[1] == "" || !isLowerAlnum(parts[1]) {
		return Info{}, false
	}
	if len(parts[2]) != idLength || !isLowerAlnum(parts[2]) {
		return Info{}, false
	}
	return Info{Time: at, Sender: parts[1], ID: parts[2]}, true
}

// SanitizeSender reduces an identity to the lowercase alphanumeric slug
// the filename protocol allows. Identities with no usable characters
// become "anon" rather than producing a malformed name.
func SanitizeSender(sender string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(sender) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "anon"
	}
	return b.String()
}

// Compose renders a message: YAML header block, blank line, body. From
// and Date are required by the protocol; everything else is optional.
func Compose(meta model.MessageMeta, body string) ([]byte, error) {
	if meta.From == "" {
		return nil, errors.New("message header requires from")
	}
	if meta.Date == "" {
		return nil, errors.New("message header requires date")
	}
	header, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal message header: %w", err)
	}
	var b strings.Builder
	b.Write(header)
	b.WriteString("\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// Parse splits a record into its header block and body text. The header
// ends at the first blank line.
func Parse(data []byte) (model.MessageMeta, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	header, body, found := strings.Cut(text, "\n\n")
	if !found {
		return model.MessageMeta{}, "", errors.New("message has no header/body separator")
	}
	var meta model.MessageMeta
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return model.MessageMeta{}, "", fmt.Errorf("unmarshal message header: %w", err)
	}
	if meta.From == "" {
		return model.MessageMeta{}, "", errors.New("message header requires from")
	}
	if meta.Date == "" {
		return model.MessageMeta{}, "", errors.New("message header requires date")
	}
	return meta, body, nil
}

func newID() string {
	// UUID hex is already inside the [a-z0-9] alphabet the protocol allows.
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

func isLowerAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
