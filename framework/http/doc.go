// Package http provides request and response helpers for handlers running
// inside a request scope.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	// Resolve from the request scope of r.Context()
//	counter, err := gohttp.Resolve[*Counter](req, "counter")
//	v, err := req.Make("clock")
//
//	// Body and input
//	var payload struct{ Name string `json:"name"` }
//	err := req.Bind(&payload)
//	page := req.Query("page", "1")
//	id := req.RouteParam("id")
//	token := req.BearerToken()
//	rid := req.ID()
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(data)             // 200 {"data": ...}
//	res.NoContent()               // 204
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.Fail(err)                 // status from StatusFor(err)
//
// Handlers abort with a specific status by returning gohttp.Abort:
//
//	return gohttp.Abort(http.StatusForbidden, "This action is unauthorized.")
package http
