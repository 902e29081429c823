package objectstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMediaPictureKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	key := MediaPictureKey(at, "beach.jpg")

	assert.Equal(t, "media/pictures/1714564800-beach.jpg", key)
}

func TestMessageAttachmentKey(t *testing.T) {
	key := MessageAttachmentKey("user-1", "att-9", "report.pdf")

	assert.Equal(t, "messages/attachments/user-1/att-9_report.pdf", key)
}
