package service

import (
	"strings"
	"sync"
	"time"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"

	"github.com/mojocn/base64Captcha"
)

const captchaCharset = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaPublicSetting 下发给前端的验证码开关
type CaptchaPublicSetting struct {
	Enabled bool            `json:"enabled"`
	Scenes  map[string]bool `json:"scenes"`
}

// CaptchaService 图片验证码服务，按场景开关决定是否校验
type CaptchaService struct {
	cfg config.CaptchaConfig

	mu    sync.Mutex
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	cfg.Image = normalizeCaptchaImage(cfg.Image)
	return &CaptchaService{cfg: cfg}
}

func normalizeCaptchaImage(image config.CaptchaImageConfig) config.CaptchaImageConfig {
	if image.Length < 4 || image.Length > 8 {
		image.Length = 5
	}
	if image.Width < 100 {
		image.Width = 240
	}
	if image.Height < 40 {
		image.Height = 80
	}
	if image.NoiseCount < 0 {
		image.NoiseCount = 0
	}
	if image.ShowLine < 0 {
		image.ShowLine = 0
	}
	if image.ExpireSeconds < 30 {
		image.ExpireSeconds = 300
	}
	if image.MaxStore < 100 {
		image.MaxStore = 10240
	}
	return image
}

// IsSceneEnabled 场景是否需要验证码
func (s *CaptchaService) IsSceneEnabled(scene string) bool {
	if s == nil || !s.cfg.Enabled {
		return false
	}
	switch scene {
	case constants.CaptchaSceneAdminLogin:
		return s.cfg.Scenes.AdminLogin
	case constants.CaptchaSceneUserLogin:
		return s.cfg.Scenes.UserLogin
	case constants.CaptchaSceneGuestCreateOrder:
		return s.cfg.Scenes.GuestCreateOrder
	default:
		return false
	}
}

// PublicSetting 公开配置
func (s *CaptchaService) PublicSetting() CaptchaPublicSetting {
	scenes := map[string]bool{}
	for _, scene := range []string{constants.CaptchaSceneAdminLogin, constants.CaptchaSceneUserLogin, constants.CaptchaSceneGuestCreateOrder} {
		scenes[scene] = s.IsSceneEnabled(scene)
	}
	return CaptchaPublicSetting{Enabled: s != nil && s.cfg.Enabled, Scenes: scenes}
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || !s.cfg.Enabled {
		return nil, ErrCaptchaConfigInvalid
	}
	image := s.cfg.Image
	driver := base64Captcha.NewDriverString(
		image.Height,
		image.Width,
		image.NoiseCount,
		image.ShowLine,
		image.Length,
		captchaCharset,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.imageStore())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码（不区分大小写），校验后验证码即失效
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if !s.IsSceneEnabled(scene) {
		return nil
	}
	id := strings.TrimSpace(payload.CaptchaID)
	code := strings.TrimSpace(payload.CaptchaCode)
	if id == "" || code == "" {
		return ErrCaptchaRequired
	}
	answer := strings.TrimSpace(s.imageStore().Get(id, true))
	if answer == "" || !strings.EqualFold(answer, code) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) imageStore() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = base64Captcha.NewMemoryStore(s.cfg.Image.MaxStore, time.Duration(s.cfg.Image.ExpireSeconds)*time.Second)
	}
	return s.store
}
