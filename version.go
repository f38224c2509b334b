// Package driftscan runs terragrunt plan across a tree of working
// directories and reports configuration drift.
package driftscan

// Version is the driftscan release version.
const Version = "0.1.0"
