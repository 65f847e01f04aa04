// Package controllers holds the HTTP handlers and the business logic behind
// them, wired against the shared trackers and gateway clients at startup.
package controllers

import (
	"github.com/cgartco6/apex-studio-platform/config"
	"github.com/cgartco6/apex-studio-platform/design"
	"github.com/cgartco6/apex-studio-platform/referral"
	"github.com/cgartco6/apex-studio-platform/revenue"
)

var (
	Cfg      *config.Config
	Pricing  *config.Pricing
	Revenue  *revenue.Tracker
	Referral *referral.Tracker
	Designer *design.Client
)

// Setup installs the shared collaborators used by the handlers.
func Setup(cfg *config.Config, pricing *config.Pricing, rev *revenue.Tracker, ref *referral.Tracker, designer *design.Client) {
	Cfg = cfg
	Pricing = pricing
	Revenue = rev
	Referral = ref
	Designer = designer
}
