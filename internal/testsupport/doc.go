// Package testsupport holds helpers shared by package tests: temp-dir
// configs, store setup, generated images, and an instrumented codec.
package testsupport
