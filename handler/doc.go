// Package handler binds HTTP requests into typed values and renders typed
// responses, keeping error translation in a single ErrorHandler.
//
//	type cancelRequest struct {
//		SubscriptionID string `json:"subscriptionId"`
//	}
//
//	func (h *Handlers) cancel(r *http.Request, req cancelRequest) handler.Response {
//		at, err := h.svc.CancelSubscription(r.Context(), req.SubscriptionID)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(cancelResponse{CancellationDate: at})
//	}
//
//	r.Post("/cancel-subscription", handler.Wrap(h.cancel,
//	    handler.WithBinders(binder.JSON()),
//	    handler.WithErrorHandler(handler.JSONErrorHandler(log, classify)),
//	))
package handler
