package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSignature(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, ValidateSignature(secret, body, Sign(secret, body)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, ValidateSignature("other-secret", body, Sign(secret, body)))
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := Sign(secret, body)
		assert.False(t, ValidateSignature(secret, []byte(`{"events":[{}]}`), sig))
	})

	t.Run("empty signature", func(t *testing.T) {
		assert.False(t, ValidateSignature(secret, body, ""))
	})
}

func TestEventIsTextMessage(t *testing.T) {
	ev := Event{Type: "message"}
	ev.Message.Type = "text"
	ev.Source.UserID = "u1"
	assert.True(t, ev.IsTextMessage())

	sticker := ev
	sticker.Message.Type = "sticker"
	assert.False(t, sticker.IsTextMessage())

	follow := ev
	follow.Type = "follow"
	assert.False(t, follow.IsTextMessage())

	anonymous := ev
	anonymous.Source.UserID = ""
	assert.False(t, anonymous.IsTextMessage())
}
