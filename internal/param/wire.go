package param

import (
	"fmt"

	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/payload"
	"github.com/danmuck/paramwire/internal/protocol/schema"
)

// EncodeRequestFrame returns the framed wire bytes of a param.request.
func EncodeRequestFrame(req Request, limits frame.Limits) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	w := payload.NewWriter(4 + 4 + len(req.Name) + 1 + 4).
		U32(req.ID).
		String(req.Name).
		U8(uint8(req.Kind)).
		U32(req.Count)
	if err := schema.Validate(schema.MsgParamRequest, w.Bytes()); err != nil {
		return nil, err
	}
	return frame.Encode(frame.Frame{Type: schema.MsgParamRequest, Payload: w.Bytes()}, limits)
}

func DecodeRequest(f frame.Frame) (Request, error) {
	if f.Type != schema.MsgParamRequest {
		return Request{}, fmt.Errorf("%w: message_type=%s", ErrMalformed, schema.Name(f.Type))
	}
	if err := schema.Validate(f.Type, f.Payload); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r := payload.NewReader(f.Payload)
	var req Request
	var err error
	if req.ID, err = r.U32(); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Name, err = r.String(MaxNameLen); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	kind, err := r.U8()
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	req.Kind = Kind(kind)
	if req.Count, err = r.U32(); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := r.Done(); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req, nil
}

// EncodeResponseFrame returns the framed wire bytes of a param.response.
func EncodeResponseFrame(resp Response, limits frame.Limits) ([]byte, error) {
	w := payload.NewWriter(64).
		U32(resp.ID).
		String(resp.Name).
		Bool(resp.Found)
	if resp.Found {
		if !resp.Value.IsValid() {
			return nil, fmt.Errorf("%w: found response without value", ErrMalformed)
		}
		v := resp.Value
		w.U8(uint8(v.Kind())).U32(uint32(v.Len()))
		switch v.Kind().Elem() {
		case KindInt32:
			for _, x := range v.ints {
				w.I32(x)
			}
		case KindFloat32:
			for _, x := range v.floats {
				w.F32(x)
			}
		case KindString:
			for _, x := range v.strs {
				w.String(x)
			}
		}
	}
	if err := schema.Validate(schema.MsgParamResponse, w.Bytes()); err != nil {
		return nil, err
	}
	return frame.Encode(frame.Frame{Type: schema.MsgParamResponse, Payload: w.Bytes()}, limits)
}

// DecodeResponse parses a param.response. Element counts are bounded by the
// bytes actually present, so a hostile count cannot force a large
// allocation. A complete array longer than MaxArrayLen still decodes; it can
// never match a request and fails the call as a count mismatch.
func DecodeResponse(f frame.Frame) (Response, error) {
	if f.Type != schema.MsgParamResponse {
		return Response{}, fmt.Errorf("%w: message_type=%s", ErrMalformed, schema.Name(f.Type))
	}
	if err := schema.Validate(f.Type, f.Payload); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	resp, err := decodeResponse(payload.NewReader(f.Payload))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return resp, nil
}

func decodeResponse(r *payload.Reader) (Response, error) {
	var resp Response
	var err error
	if resp.ID, err = r.U32(); err != nil {
		return Response{}, err
	}
	if resp.Name, err = r.String(MaxNameLen); err != nil {
		return Response{}, err
	}
	if resp.Found, err = r.Bool(); err != nil {
		return Response{}, err
	}
	if !resp.Found {
		return resp, r.Done()
	}

	rawKind, err := r.U8()
	if err != nil {
		return Response{}, err
	}
	kind := Kind(rawKind)
	if !kind.Valid() {
		return Response{}, fmt.Errorf("invalid kind %d", rawKind)
	}
	count, err := r.U32()
	if err != nil {
		return Response{}, err
	}
	if !kind.IsArray() && count != 1 {
		return Response{}, fmt.Errorf("scalar %s with count %d", kind, count)
	}
	if uint64(count)*4 > uint64(r.Remaining()) {
		return Response{}, fmt.Errorf("count %d exceeds bounds", count)
	}

	n := int(count)
	v := Value{kind: kind}
	switch kind.Elem() {
	case KindInt32:
		v.ints = make([]int32, n)
		for i := range v.ints {
			if v.ints[i], err = r.I32(); err != nil {
				return Response{}, err
			}
		}
	case KindFloat32:
		v.floats = make([]float32, n)
		for i := range v.floats {
			if v.floats[i], err = r.F32(); err != nil {
				return Response{}, err
			}
		}
	case KindString:
		v.strs = make([]string, n)
		for i := range v.strs {
			if v.strs[i], err = r.String(r.Remaining()); err != nil {
				return Response{}, err
			}
		}
	}
	resp.Value = v
	return resp, r.Done()
}
