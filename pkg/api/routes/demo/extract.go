package demo

import (
	"strconv"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/api/extract"
	"webdemo/pkg/api/respond"
	"webdemo/pkg/api/utils"
	"webdemo/pkg/config"
)

// Info identifies a user and one of their friends.
type Info struct {
	UserID uint32 `json:"user_id"`
	Friend string `json:"friend"`
}

// pathInfo is Info decoded from path parameters, where numbers arrive as
// strings.
type pathInfo struct {
	UserID uint32 `json:"user_id,string"`
	Friend string `json:"friend"`
}

// User carries a username from a query string, form or JSON body.
type User struct {
	Username string `json:"username"`
}

// Extractors serves the request-extraction demos. Payload limits come from
// configuration.
type Extractors struct {
	Limits config.LimitsConfig
}

// PathTuple reads user_id and friend positionally.
func (e Extractors) PathTuple(ctx *fasthttp.RequestCtx) {
	userID, err := extract.PathUint32(ctx, "user_id")
	if err != nil {
		extract.Fail(ctx, err)
		return
	}
	respond.Textf(ctx, "Welcome %s, user_id %d!", utils.GetPathParam(ctx, "friend"), userID)
}

// PathStruct decodes user_id and friend into a struct.
func (e Extractors) PathStruct(ctx *fasthttp.RequestCtx) {
	var info pathInfo
	if err := extract.Path(ctx, &info, "user_id", "friend"); err != nil {
		extract.Fail(ctx, err)
		return
	}
	respond.Textf(ctx, "Welcome %s, user_id %d!", info.Friend, info.UserID)
}

// PathMatch reads raw match values and converts user_id by hand.
func (e Extractors) PathMatch(ctx *fasthttp.RequestCtx) {
	friend := utils.GetPathParam(ctx, "friend")
	userID, err := strconv.ParseInt(utils.GetPathParam(ctx, "user_id"), 10, 32)
	if err != nil {
		respond.TextStatus(ctx, fasthttp.StatusNotFound, "user_id must be an integer")
		return
	}
	respond.Textf(ctx, "Welcome %s, user_id %d!", friend, userID)
}

// Query greets the username from the query string.
func (e Extractors) Query(ctx *fasthttp.RequestCtx) {
	var u User
	if err := extract.Query(ctx, &u, "username"); err != nil {
		extract.Fail(ctx, err)
		return
	}
	respond.Textf(ctx, "Welcome %s!", u.Username)
}

// Submit greets the username from a JSON body under the default JSON limit.
func (e Extractors) Submit(ctx *fasthttp.RequestCtx) {
	var u User
	cfg := extract.JSONConfig{Limit: e.Limits.JSON.Int64()}
	if !extract.HandleJSON(ctx, cfg, &u, "username") {
		return
	}
	respond.Textf(ctx, "Welcome %s!", u.Username)
}

// JSONResource accepts any small well-formed JSON body; any extraction
// failure answers 409.
func (e Extractors) JSONResource(ctx *fasthttp.RequestCtx) {
	var body any
	cfg := extract.JSONConfig{
		Limit: e.Limits.JSONResource.Int64(),
		ErrorHandler: func(ctx *fasthttp.RequestCtx, err error) {
			ctx.SetStatusCode(fasthttp.StatusConflict)
		},
	}
	if !extract.HandleJSON(ctx, cfg, &body) {
		return
	}
	respond.Text(ctx, "Hello world!")
}

// Form greets the username from an urlencoded body.
func (e Extractors) Form(ctx *fasthttp.RequestCtx) {
	var u User
	if err := extract.Form(ctx, extract.FormConfig{Limit: e.Limits.Form.Int64()}, &u, "username"); err != nil {
		extract.Fail(ctx, err)
		return
	}
	respond.Textf(ctx, "Welcome %s!", u.Username)
}

// Combined joins two path segments with a JSON body.
func (e Extractors) Combined(ctx *fasthttp.RequestCtx) {
	var info Info
	cfg := extract.JSONConfig{Limit: e.Limits.JSON.Int64()}
	if !extract.HandleJSON(ctx, cfg, &info, "user_id", "friend") {
		return
	}
	respond.Textf(ctx, "%s %s %d %s",
		utils.GetPathParam(ctx, "first"), utils.GetPathParam(ctx, "second"),
		info.UserID, info.Friend)
}
