package sandbox

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

const validateTagName = "validate"

// Validator 延迟初始化的请求参数校验器。
type Validator struct {
	once     sync.Once
	validate *validator.Validate
}

// Validate 参数验证
func (v *Validator) Validate(obj interface{}) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return v.Validate(value.Elem().Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := v.Validate(value.Index(i).Interface()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		v.lazyInit()
		return v.validate.Struct(obj)
	}

	return nil
}

func (v *Validator) lazyInit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName(validateTagName)
	})
}

// invalidArgument 校验失败时返回 CodeInvalidArgument 结果，ok 为 true 表示校验通过。
func (c *Client) invalidArgument(obj interface{}) (Result, bool) {
	if err := c.validator.Validate(obj); err != nil {
		return failureResult(CodeInvalidArgument, "invalid argument: "+err.Error()), false
	}
	return Result{}, true
}
