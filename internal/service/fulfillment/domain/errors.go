// internal/service/fulfillment/domain/errors.go
package domain

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind 错误分类，调用方按 Kind 做穷举处理
type ErrorKind int

const (
	KindUnknown        ErrorKind = iota
	KindValidation               // 请求格式错误
	KindPrecondition             // 订单当前不可发货
	KindConflict                 // 已存在活跃发货单
	KindNotServiceable           // 无可用仓库或目的地不可达，用户可自行调整
	KindCarrier                  // 承运商返回的其它失败
	KindAuth                     // 获取承运商 token 失败
	KindNotFound
	KindWebhookAuth
	KindTimeout  // 承运商调用超时，可重试
	KindInternal // 本服务自身的存储等错误
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindConflict:
		return "conflict"
	case KindNotServiceable:
		return "not_serviceable"
	case KindCarrier:
		return "carrier"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindWebhookAuth:
		return "webhook_auth"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// HTTPStatus 错误分类对应的 HTTP 状态码
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindPrecondition, KindNotServiceable:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindWebhookAuth:
		return http.StatusUnauthorized
	case KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Error 带分类的业务错误
type Error struct {
	Kind    ErrorKind
	Op      string // 出错的操作，如 "CreateShipment"
	Step    string // 发货流水线中失败的步骤
	Message string
	Fields  map[string][]string // 承运商返回的字段级错误
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Step != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Step, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E 构造一个分类错误
func E(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap 给底层错误加上分类
func Wrap(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// KindOf 取出错误链上第一个分类，没有时返回 KindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StepOf 取出失败步骤
func StepOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Step
	}
	return ""
}

// HTTPStatus 未分类的错误按 500 处理
func HTTPStatus(err error) int {
	return KindOf(err).HTTPStatus()
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

var notServiceableMarkers = []string{
	"not serviceable",
	"non serviceable",
	"not servicable",
	"pincode",
	"no courier",
}

// IsNotServiceableMessage 承运商用自然语言描述目的地不可达，只能按关键字识别
func IsNotServiceableMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range notServiceableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// CarrierFailure 把承运商调用失败归类到某个步骤。
// 已经带有 Timeout / Auth 等分类的错误保持原分类，其余按文本区分不可达与一般承运商错误。
func CarrierFailure(op, step string, err error) *Error {
	kind := KindOf(err)
	msg := err.Error()
	var inner *Error
	if errors.As(err, &inner) && inner.Message != "" {
		msg = inner.Message
	}
	if kind == KindUnknown || kind == KindCarrier {
		kind = KindCarrier
		if IsNotServiceableMessage(err.Error()) {
			kind = KindNotServiceable
		}
	}
	e := &Error{Kind: kind, Op: op, Step: step, Message: msg, Err: err}
	var fe interface{ Fields() map[string][]string }
	if errors.As(err, &fe) {
		e.Fields = fe.Fields()
	}
	return e
}

// Internal 包装本服务内部错误
func Internal(op, step string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Step: step, Message: err.Error(), Err: err}
}
