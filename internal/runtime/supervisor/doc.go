// Package supervisor runs the long-lived goroutines of `pagefx watch`.
package supervisor
