package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/altan-shop/internal/constants"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	mnPhonePattern = regexp.MustCompile(`^[5-9][0-9]{7}$`)
	registerOnce   sync.Once
	registerErr    error
)

// NormalizePhone 去掉空格、连字符与 +976 前缀
func NormalizePhone(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	return strings.TrimPrefix(phone, "+976")
}

// IsMongolianPhone 8 位本地号码，首位 5-9
func IsMongolianPhone(phone string) bool {
	return mnPhonePattern.MatchString(NormalizePhone(phone))
}

// Register 向 gin 的校验引擎注册自定义规则：mn_phone、payment_method、payment_status、order_status
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerErr = RegisterOn(v)
	})
	return registerErr
}

// RegisterOn 在指定校验器上注册规则
func RegisterOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"mn_phone": func(fl validator.FieldLevel) bool {
			return IsMongolianPhone(fl.Field().String())
		},
		"payment_method": func(fl validator.FieldLevel) bool {
			return constants.PaymentMethod(fl.Field().Int()).Valid()
		},
		"payment_status": func(fl validator.FieldLevel) bool {
			return constants.PaymentStatus(fl.Field().Int()).Valid()
		},
		"order_status": func(fl validator.FieldLevel) bool {
			return constants.OrderStatus(fl.Field().Int()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
