// Package mongo provides MongoDB connection management for the billing
// service's subscription record store.
//
// Configuration is environment driven (see Config). New retries the initial
// connection, and Healthcheck plugs into the readiness endpoint. Errors wrap
// the driver errors with errors.Join so callers can test them with errors.Is.
//
// # Usage
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store, err := billing.NewMongoStore(ctx, db)
//
// See https://pkg.go.dev/go.mongodb.org/mongo-driver/v2 for the driver.
package mongo
