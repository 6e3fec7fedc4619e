// Package bootstrap runs a service from validated config to graceful
// shutdown: banner, component start, startup summary, signal wait and
// reverse-order stop.
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(server.NewComponent(srv))
//	return app.Run(ctx)
package bootstrap
