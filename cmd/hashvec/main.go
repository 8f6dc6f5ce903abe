// Command hashvec regenerates the hash test vector headers from the NIST
// NSRL and CAVP archives.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
