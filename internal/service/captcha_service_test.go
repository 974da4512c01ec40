package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"
)

func TestCaptchaVerifyByScene(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{
		Enabled: true,
		Scenes:  config.CaptchaSceneConfig{AdminLogin: true, GuestCreateOrder: true},
	})
	if svc.IsSceneEnabled(constants.CaptchaSceneUserLogin) {
		t.Fatalf("user login scene should be disabled")
	}
	if err := svc.Verify(constants.CaptchaSceneUserLogin, CaptchaVerifyPayload{}); err != nil {
		t.Fatalf("disabled scene should pass: %v", err)
	}
	if err := svc.Verify(constants.CaptchaSceneAdminLogin, CaptchaVerifyPayload{}); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("expected captcha required, got %v", err)
	}

	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if challenge.CaptchaID == "" || !strings.HasPrefix(challenge.ImageBase64, "data:image") {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	answer := svc.imageStore().Get(challenge.CaptchaID, false)
	if len(answer) != 5 {
		t.Fatalf("unexpected answer length: %q", answer)
	}
	if err := svc.Verify(constants.CaptchaSceneAdminLogin, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "wrong"}); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected invalid captcha, got %v", err)
	}

	second, _ := svc.GenerateImageChallenge()
	answer = svc.imageStore().Get(second.CaptchaID, false)
	if err := svc.Verify(constants.CaptchaSceneGuestCreateOrder, CaptchaVerifyPayload{CaptchaID: second.CaptchaID, CaptchaCode: strings.ToUpper(answer)}); err != nil {
		t.Fatalf("correct answer should pass: %v", err)
	}
	if err := svc.Verify(constants.CaptchaSceneGuestCreateOrder, CaptchaVerifyPayload{CaptchaID: second.CaptchaID, CaptchaCode: answer}); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("captcha must be single use, got %v", err)
	}
}

func TestCaptchaDisabled(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Scenes: config.CaptchaSceneConfig{AdminLogin: true}})
	if svc.IsSceneEnabled(constants.CaptchaSceneAdminLogin) {
		t.Fatalf("scenes are off when captcha is disabled")
	}
	if _, err := svc.GenerateImageChallenge(); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}
