// Package controller is the entry point of the library.
//
// A Controller owns one bridge session: the server lifecycle, the device
// registry, the event bus and the presence monitor. Callers create it with
// New, query and subscribe while it is open, and dispose of it with Close,
// which stops the bridge server if this controller started it.
//
//	c, err := controller.New(controller.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close(context.Background())
//
//	if err := c.WaitUntilPresent(ctx); err != nil {
//		return err
//	}
//	dev, _ := c.FirstDevice()
//	res, err := dev.Shell(ctx, "getprop", "ro.build.version.sdk")
package controller
