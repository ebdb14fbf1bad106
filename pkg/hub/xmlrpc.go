package hub

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
)

// XMLRPCTransport is a minimal XML-RPC client sufficient for the fixed
// method vocabulary this module issues. The wire protocol is explicitly
// out of scope per spec.md section 1 ("the Koji RPC transport ... addressed
// only through its interface"); this implementation exists only so the
// module is runnable end to end without a third-party XML-RPC client,
// none of which appear anywhere in the example corpus (see DESIGN.md).
type XMLRPCTransport struct {
	URL    string
	Client *http.Client

	authenticated bool
	currentUser   CurrentUser
}

// NewXMLRPCTransport builds a transport pointed at a Koji hub URL.
func NewXMLRPCTransport(url string, client *http.Client) *XMLRPCTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &XMLRPCTransport{URL: url, Client: client}
}

// Authenticate marks the transport as carrying an authenticated session
// for the given principal. Credential acquisition itself (spec.md
// section 1 non-goals) happens upstream; this only records the result.
func (t *XMLRPCTransport) Authenticate(user CurrentUser) {
	t.authenticated = true
	t.currentUser = user
}

// Authenticated implements Transport.
func (t *XMLRPCTransport) Authenticated() bool { return t.authenticated }

// CurrentUser implements Transport.
func (t *XMLRPCTransport) CurrentUser() (CurrentUser, bool) {
	return t.currentUser, t.authenticated
}

// Call implements Transport.
func (t *XMLRPCTransport) Call(ctx context.Context, call Call) (any, error) {
	body, err := marshalRequest(call)
	if err != nil {
		return nil, errors.NewHubError("encoding call "+call.Method, err)
	}
	resp, err := t.post(ctx, body)
	if err != nil {
		return nil, errors.NewHubError("calling "+call.Method, err)
	}
	return unmarshalResponse(resp)
}

// MultiCall implements Transport by issuing Koji's own "multiCall"
// convention: a single call whose sole argument is the list of
// {methodName, params} records, with results returned in matching
// order wrapped as [value] on success or a fault struct on failure.
func (t *XMLRPCTransport) MultiCall(ctx context.Context, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	entries := make([]any, 0, len(calls))
	for _, c := range calls {
		params := append([]any{}, c.Args...)
		if c.Kwargs != nil {
			params = append(params, c.Kwargs)
		}
		entries = append(entries, map[string]any{
			"methodName": c.Method,
			"params":     params,
		})
	}

	wrapped := Call{Method: MethodMultiCall, Args: []any{entries}}
	raw, err := t.Call(ctx, wrapped)
	if err != nil {
		return nil, err
	}

	rows, ok := raw.([]any)
	if !ok {
		return nil, errors.NewHubError("malformed multiCall response", nil)
	}
	results := make([]Result, 0, len(rows))
	for i, row := range rows {
		results = append(results, unwrapMultiCallRow(row, calls[i].Method))
	}
	return results, nil
}

func unwrapMultiCallRow(row any, method string) Result {
	switch v := row.(type) {
	case []any:
		if len(v) != 1 {
			return Result{Err: errors.NewHubError(fmt.Sprintf("malformed multiCall result for %s", method), nil)}
		}
		return Result{Value: v[0]}
	case map[string]any:
		if code, ok := v["faultCode"]; ok {
			msg, _ := v["faultString"].(string)
			return Result{Err: errors.NewHubError(fmt.Sprintf("%s fault %v: %s", method, code, msg), nil)}
		}
		return Result{Value: v}
	default:
		return Result{Value: row}
	}
}

// faultMessage extracts a human-readable message from a decoded fault
// value, which Koji sends either as a bare string or as a
// faultCode/faultString struct.
func faultMessage(v any) string {
	switch fv := v.(type) {
	case string:
		return fv
	case map[string]any:
		if s, ok := fv["faultString"].(string); ok {
			return s
		}
	}
	return "unknown fault"
}

func (t *XMLRPCTransport) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// --- minimal XML-RPC wire encoding (stdlib only; see DESIGN.md) ---

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []param  `xml:"params>param"`
}

type param struct {
	Value value `xml:"value"`
}

type value struct {
	String  *string  `xml:"string,omitempty"`
	Int     *int     `xml:"int,omitempty"`
	Boolean *int     `xml:"boolean,omitempty"`
	Array   *array   `xml:"array,omitempty"`
	Struct  *xstruct `xml:"struct,omitempty"`
}

type array struct {
	Data []value `xml:"data>value"`
}

type xstruct struct {
	Members []member `xml:"member"`
}

type member struct {
	Name  string `xml:"name"`
	Value value  `xml:"value"`
}

func marshalRequest(call Call) ([]byte, error) {
	params := make([]param, 0, len(call.Args)+1)
	for _, a := range call.Args {
		v, err := toValue(a)
		if err != nil {
			return nil, err
		}
		params = append(params, param{Value: v})
	}
	if call.Kwargs != nil {
		v, err := toValue(call.Kwargs)
		if err != nil {
			return nil, err
		}
		params = append(params, param{Value: v})
	}
	mc := methodCall{MethodName: call.Method, Params: params}
	out, err := xml.Marshal(mc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func toValue(a any) (value, error) {
	switch v := a.(type) {
	case nil:
		return value{}, nil
	case string:
		return value{String: &v}, nil
	case int:
		return value{Int: &v}, nil
	case bool:
		b := 0
		if v {
			b = 1
		}
		return value{Boolean: &b}, nil
	case []any:
		items := make([]value, 0, len(v))
		for _, e := range v {
			iv, err := toValue(e)
			if err != nil {
				return value{}, err
			}
			items = append(items, iv)
		}
		return value{Array: &array{Data: items}}, nil
	case map[string]any:
		members := make([]member, 0, len(v))
		for k, e := range v {
			iv, err := toValue(e)
			if err != nil {
				return value{}, err
			}
			members = append(members, member{Name: k, Value: iv})
		}
		return value{Struct: &xstruct{Members: members}}, nil
	default:
		return value{}, errors.NewHubError(fmt.Sprintf("unsupported xmlrpc value type %T", a), nil)
	}
}

type methodResponse struct {
	XMLName xml.Name `xml:"methodResponse"`
	Params  []param  `xml:"params>param"`
	Fault   *value   `xml:"fault>value"`
}

func unmarshalResponse(body []byte) (any, error) {
	var resp methodResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Fault != nil {
		return nil, errors.NewHubError("hub fault: "+faultMessage(fromValue(*resp.Fault)), nil)
	}
	if len(resp.Params) == 0 {
		return nil, nil
	}
	return fromValue(resp.Params[0].Value), nil
}

func fromValue(v value) any {
	switch {
	case v.String != nil:
		return *v.String
	case v.Int != nil:
		return *v.Int
	case v.Boolean != nil:
		return *v.Boolean != 0
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Data))
		for _, e := range v.Array.Data {
			out = append(out, fromValue(e))
		}
		return out
	case v.Struct != nil:
		out := make(map[string]any, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			out[m.Name] = fromValue(m.Value)
		}
		return out
	default:
		return nil
	}
}
