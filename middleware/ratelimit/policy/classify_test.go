package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"admission-gateway/middleware/ratelimit/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want domain.Category
	}{
		{"/api/chat", domain.CategoryChat},
		{"/api/chat/stream", domain.CategoryChat},
		{"/api/messages/123", domain.CategoryChat},
		{"/api/voice/synthesize", domain.CategoryVoice},
		{"/api/tts", domain.CategoryVoice},
		{"/admin", domain.CategoryAdmin},
		{"/admin/analytics", domain.CategoryAdmin},
		{"/api/admin/users", domain.CategoryAdmin},
		{"/API/Admin/Users", domain.CategoryAdmin},
		{"/api/checkout/session", domain.CategoryPayment},
		{"/api/webhooks/stripe", domain.CategoryPayment},
		{"/api/billing/portal?x=1", domain.CategoryPayment},
		{"/_next/static/chunks/main.js", domain.CategoryStatic},
		{"/favicon.ico", domain.CategoryStatic},
		{"/logo.png", domain.CategoryStatic},
		{"/api/profile", domain.CategoryGeneral},
		{"/pricing", domain.CategoryGeneral},
		{"/", domain.CategoryGeneral},
		{"/api/conversation", domain.CategoryNone},
		{"/api/conversation/42/reply", domain.CategoryNone},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.path), "path %q", tc.path)
	}
}

func TestClassify_SegmentBoundary(t *testing.T) {
	assert.Equal(t, domain.CategoryGeneral, Classify("/api/chatroom"))
	assert.Equal(t, domain.CategoryGeneral, Classify("/administrator"))
	assert.Equal(t, domain.CategoryChat, Classify("/api/chat/"))
}

func TestClassify_AdminAndPaymentNeverFallThrough(t *testing.T) {
	// /api casaria general; admin/payment têm precedência
	assert.Equal(t, domain.CategoryAdmin, Classify("/api/admin/../admin/settings"))
	assert.Equal(t, domain.CategoryPayment, Classify("/api/payments/refund/1"))
}

func TestClassify_MalformedDefaultsToGeneral(t *testing.T) {
	for _, p := range []string{"", "   ", "api/chat", "http://x/api/chat", "%%%"} {
		assert.Equal(t, domain.CategoryGeneral, Classify(p), "path %q", p)
	}
}

func TestNewClassifier_ExtraExempt(t *testing.T) {
	c := NewClassifier("/api/realtime")
	assert.Equal(t, domain.CategoryNone, c.Classify("/api/realtime/session"))
	assert.Equal(t, domain.CategoryGeneral, Classify("/api/realtime/session"))
}
