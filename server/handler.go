package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/akhenakh/skriptls/jsonrpc2"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	connType    = reflect.TypeOf((*jsonrpc2.Conn)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// typedHandler wraps a user-provided function with strong parameter typing.
//
// Accepted shapes:
//
//	func(ctx context.Context [, conn *jsonrpc2.Conn] [, params P]) [R] [error]
//
// where P is a struct, a pointer to a struct or json.RawMessage.
type typedHandler struct {
	fn          reflect.Value
	paramType   reflect.Type // element type to decode into; nil without params
	paramIsPtr  bool
	takesConn   bool
	takesParams bool
	hasResult   bool
	hasError    bool
}

// invoke calls the underlying user handler after decoding params.
func (th *typedHandler) invoke(ctx context.Context, conn *jsonrpc2.Conn, params json.RawMessage) (any, error) {
	args := []reflect.Value{reflect.ValueOf(ctx)}
	if th.takesConn {
		args = append(args, reflect.ValueOf(conn))
	}
	if th.takesParams {
		ptr := reflect.New(th.paramType)
		if len(params) > 0 && string(params) != "null" {
			if err := json.Unmarshal(params, ptr.Interface()); err != nil {
				return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "failed to decode params: %v", err)
			}
		}
		if th.paramIsPtr {
			args = append(args, ptr)
		} else {
			args = append(args, ptr.Elem())
		}
	}

	results := th.fn.Call(args)

	if th.hasError {
		if errVal := results[len(results)-1]; !errVal.IsNil() {
			err := errVal.Interface().(error)
			var rpcErr *jsonrpc2.ErrorObject
			if errors.As(err, &rpcErr) {
				return nil, rpcErr
			}
			return nil, err
		}
	}
	if !th.hasResult {
		return nil, nil
	}
	res := results[0]
	switch res.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		if res.IsNil() {
			return nil, nil
		}
	}
	return res.Interface(), nil
}

// newTypedHandler validates a user-provided handler function signature.
func newTypedHandler(h any) (*typedHandler, error) {
	fn := reflect.ValueOf(h)
	hType := fn.Type()
	if hType.Kind() != reflect.Func {
		return nil, errors.New("handler must be a function")
	}
	if hType.NumIn() < 1 || hType.In(0) != contextType {
		return nil, errors.New("handler must accept context.Context as first argument")
	}

	th := &typedHandler{fn: fn}
	argIndex := 1
	if hType.NumIn() > argIndex && hType.In(argIndex) == connType {
		th.takesConn = true
		argIndex++
	}
	if hType.NumIn() > argIndex {
		pt := hType.In(argIndex)
		if pt.Kind() == reflect.Ptr {
			th.paramIsPtr = true
			pt = pt.Elem()
		}
		if pt.Kind() != reflect.Struct && pt != reflect.TypeOf(json.RawMessage(nil)) {
			return nil, fmt.Errorf("handler param type %s must be a struct, a pointer to a struct or json.RawMessage", hType.In(argIndex))
		}
		th.paramType = pt
		th.takesParams = true
		argIndex++
	}
	if hType.NumIn() > argIndex {
		return nil, errors.New("handler has too many input arguments (max context, [conn], [params])")
	}

	switch hType.NumOut() {
	case 0:
	case 1:
		if hType.Out(0) == errorType {
			th.hasError = true
		} else {
			th.hasResult = true
		}
	case 2:
		if hType.Out(1) != errorType {
			return nil, errors.New("handler's last return value must be error")
		}
		th.hasResult = true
		th.hasError = true
	default:
		return nil, errors.New("handler has too many return values (max result, error)")
	}
	return th, nil
}
