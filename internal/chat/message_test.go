package chat

import (
	"testing"
	"time"
)

func TestKeyMatchesDuplicateDelivery(t *testing.T) {
	at := time.Now()
	a := Message{Sender: "alice", Recipient: "bob", Body: "hi", SentAt: at, ClientID: "one"}
	b := Message{Sender: "alice", Recipient: "bob", Body: "hi", SentAt: at, ClientID: "two"}

	// Same sender, time and body is the same event regardless of any
	// client-generated ids riding along.
	if a.Key() != b.Key() {
		t.Error("expected identical keys for duplicate delivery")
	}

	c := Message{Sender: "alice", Recipient: "bob", Body: "hi", SentAt: at.Add(time.Nanosecond)}
	if a.Key() == c.Key() {
		t.Error("expected distinct keys for distinct send times")
	}
}

func TestInThread(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"outbound", Message{Sender: "alice", Recipient: "bob"}, true},
		{"inbound", Message{Sender: "bob", Recipient: "alice"}, true},
		{"foreign sender", Message{Sender: "carol", Recipient: "alice"}, false},
		{"foreign recipient", Message{Sender: "alice", Recipient: "carol"}, false},
		{"unrelated", Message{Sender: "carol", Recipient: "dave"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.InThread("alice", "bob"); got != tt.want {
				t.Errorf("InThread() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		wantKind    Kind
		wantOK      bool
	}{
		{"image/png", KindImage, true},
		{"image/jpeg", KindImage, true},
		{"audio/ogg", KindVoice, true},
		{"video/mp4", KindVideo, true},
		{"application/pdf", KindDocument, true},
		{"application/msword", KindDocument, true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDocument, true},
		{"Image/PNG", KindImage, true},
		{"audio/ogg; codecs=opus", KindVoice, true},
		{"text/plain", "", false},
		{"application/zip", "", false},
		{"application/octet-stream", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			kind, ok := KindForContentType(tt.contentType)
			if ok != tt.wantOK {
				t.Fatalf("KindForContentType(%q) ok = %v, want %v", tt.contentType, ok, tt.wantOK)
			}
			if kind != tt.wantKind {
				t.Errorf("KindForContentType(%q) = %q, want %q", tt.contentType, kind, tt.wantKind)
			}
		})
	}
}

func TestCaption(t *testing.T) {
	if got := Caption(KindImage, "photo.png"); got != "📷 Image" {
		t.Errorf("image caption = %q", got)
	}
	if got := Caption(KindVoice, "note.ogg"); got != "🎤 Voice message" {
		t.Errorf("voice caption = %q", got)
	}
	if got := Caption(KindVideo, "clip.mp4"); got != "🎬 Video" {
		t.Errorf("video caption = %q", got)
	}
	if got := Caption(KindDocument, "report.pdf"); got != "📎 report.pdf" {
		t.Errorf("document caption = %q", got)
	}
	if got := Caption(KindDocument, ""); got != "📎 Document" {
		t.Errorf("unnamed document caption = %q", got)
	}
}

func TestNewAttachmentUsesCaptionAsBody(t *testing.T) {
	msg := NewAttachment("alice", "bob", KindImage, "/api/files/abc.png", "abc.png")
	if msg.Body != "📷 Image" {
		t.Errorf("Body = %q, want caption", msg.Body)
	}
	if msg.AttachmentURL != "/api/files/abc.png" {
		t.Errorf("AttachmentURL = %q", msg.AttachmentURL)
	}
	if msg.SentAt.IsZero() {
		t.Error("SentAt not stamped")
	}
}
