// Package httpclient talks to the LINE Messaging API and the Google
// recognition REST endpoints.
//
// A Client is bound to one remote. It resolves paths against a base URL,
// attaches credentials, classifies failures by status code and can sit
// behind a circuit breaker and a retry policy.
//
//	api, err := httpclient.New(httpclient.Config{
//	    Name:    "line-api",
//	    BaseURL: "https://api.line.me",
//	    Auth:    httpclient.BearerAuth(token),
//	})
//	resp, err := httpclient.Post[annotateResponse](vision, ctx, "/v1/images:annotate", body)
//
// DoStream leaves the body unread for large message content.
package httpclient
