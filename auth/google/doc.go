// Package google adapts golang.org/x/oauth2/google to the TokenSource the
// Vision and Speech clients take. Credentials resolve the way the client
// libraries do: a service-account key file named by
// GOOGLE_APPLICATION_CREDENTIALS, the gcloud credentials file, otherwise the
// metadata server of the machine the bot runs on (Cloud Run, GCE, GKE).
//
// Tokens are cached until shortly before they expire, so a TokenSource can be
// handed to httpclient.TokenAuth and asked for a token on every request.
package google
