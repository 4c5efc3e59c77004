// Package bootstrap wires the streamkit infrastructure together in one
// call: configuration loading, the global logger, the default scheduler
// settings and optional OpenTelemetry providers.
//
//	rt, err := bootstrap.Init(ctx)
//	if err != nil {
//	    return err
//	}
//	defer rt.Shutdown(ctx)
//
//	flow.Range(0, 100).Subscribe(ctx, handle, nil, nil)
//
// Embedding applications that manage their own logging and telemetry can
// skip this package entirely; every streamkit package works standalone.
package bootstrap
