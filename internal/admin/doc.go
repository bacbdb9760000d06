// Package admin implements the operator command line: applying database
// migrations and bootstrapping administrator accounts. Input helpers read
// from an injected reader so commands can be driven from tests.
package admin
