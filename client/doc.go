// Package client provides a thin REST/JSON client built on [net/http].
//
// # Building a Client
//
// Use [New] to create a [Client] bound to a base URL, with functional options:
//
//	c, err := client.New("https://jsonplaceholder.typicode.com",
//		client.WithAuth(client.BasicAuth("username", "password")),
//		client.WithTimeout(3*time.Second),
//		client.WithUserAgent("PlaceHolderClient/1.0"),
//	)
//
// # Making Calls
//
// [Client.Call] joins the path segments onto the base URL, forwards query
// parameters and returns the [http.Response] untouched. The caller owns the
// response body:
//
//	resp, err := c.Call(ctx, http.MethodGet, []any{"comments"},
//		client.WithParams(map[string]any{"postId": 1}),
//	)
//	if err != nil { ... }
//	comments, err := client.Decode[[]Comment](resp)
//
// Per-call options such as [WithCallTimeout] override the defaults given to
// [WithDefaults] for that call only.
//
// # Status Checking
//
// By default no status code is interpreted. [WithStatusCheck] turns 4xx, 5xx
// and unfollowed 3xx responses into a [*StatusError]:
//
//	resp, err := c.Call(ctx, http.MethodPut, []any{"posts", 1}, client.WithStatusCheck())
//	var se *client.StatusError
//	if errors.As(err, &se) { ... se.Kind, se.Code, se.Message ... }
//
// # Instrumentation
//
// [WithRequestID], [WithTracing] and [WithMetrics] wrap the transport to tag,
// trace and count outbound calls.
package client
