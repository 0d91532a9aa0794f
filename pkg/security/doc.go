// Package security groups the relay's credential handling. Subpackage
// secrets resolves provider API keys from the environment or mounted
// secret files so that they never have to be written into the
// configuration file.
package security
