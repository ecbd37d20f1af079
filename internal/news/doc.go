// Package news defines the domain types shared by the scraper subsystems and
// the ports the cycle orchestrator depends on.
package news
