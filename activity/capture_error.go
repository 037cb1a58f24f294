package activity

// CaptureError runs f and, if it fails, records the error as the status of
// the activity.
//
//	func (a *Sales) Execute(ctx context.Context) error {
//	    return activity.CaptureError(a.StatusLine, func() error {
//	        a.StatusLine.Set("creating sales")
//	        return a.createSales(ctx)
//	    })
//	}
func CaptureError(statusLine *StatusLine, f func() error) error {
	err := f()
	if err != nil && statusLine != nil {
		statusLine.Set("failed: " + err.Error())
	}
	return err
}
