// Package authcore is the authentication and session-token subsystem for an
// administrative back office. It validates login attempts (credentials plus
// an optional single-use captcha challenge), issues signed bearer tokens
// bound to server-side session entries in Redis, refreshes those entries
// under active use, and records every login attempt through an asynchronous
// audit dispatcher that never blocks the request path.
//
// The session model is deliberately hybrid: tokens are self-contained and
// signed, but the Redis entry they point at is the final authority. That is
// what makes logout and sliding expiry work with stateless tokens.
//
// Build an engine with the builder:
//
//	cfg := authcore.DefaultConfig()
//	cfg.Token.PrivateKey = signingSecret
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithUserProvider(users).
//		WithConfigProvider(settings).
//		WithAuditSink(authcore.NewJSONWriterSink(os.Stdout)).
//		Build()
//
// then wire middleware.Filter in front of the HTTP mux and call
// engine.Login from the login handler.
package authcore
