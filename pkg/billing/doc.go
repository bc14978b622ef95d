// Package billing implements subscription checkout, cancellation and webhook
// reconciliation against a payment processor.
//
// The moving parts are:
//
//   - Catalog: the fixed plan price table, loaded from YAML.
//   - CheckoutInitiator: validates a plan selection and opens a hosted
//     subscription checkout. Nothing is stored until the processor confirms.
//   - Reconciler: verifies webhook signatures and applies
//     checkout.session.completed, customer.subscription.updated and
//     customer.subscription.deleted to the Store, then pushes the resulting
//     record to an IdentitySync sink.
//   - Canceller and PortalService: thin wrappers over processor calls.
//   - Store: MemoryStore, MongoStore and PostgresStore keep one Record per
//     subscription, unique by subscription ID and by user email.
//
// Webhook deliveries are at-least-once and unordered. The reconciler is
// idempotent on subscription ID, never creates records from update events,
// and acknowledges internal failures instead of surfacing them so the
// processor does not retry indefinitely.
//
// Errors are classified with errors.Is against ErrValidation, ErrUpstream,
// ErrInvalidSignature and ErrRecordNotFound.
package billing
