// Command portalctl performs administrative tasks against the portal
// database: migrations, librarian accounts, fee seeding, and draining the
// library event queue.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
