package checker

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestResultAccumulatorProperties(t *testing.T) {
	info := &TargetInfo{FullURL: "https://example.com", Host: "example.com"}

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("cloudflare flag never reverts", prop.ForAll(
		func(marks []bool) bool {
			res := NewResult(info)
			seen := false
			for _, mark := range marks {
				if mark {
					res.MarkCloudflare("CF-Ray header found: 1")
					seen = true
				} else {
					res.AddEvidence("Error checking the website: timeout")
				}
				if res.IsCloudflare != seen {
					return false
				}
			}
			return len(res.Evidence) == len(marks)
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("last CDN match wins", prop.ForAll(
		func(providers []string) bool {
			res := NewResult(info)
			for _, p := range providers {
				res.SetCDN(p, p+" detected")
			}
			if len(providers) == 0 {
				return res.CDNOrProxy == ""
			}
			return res.CDNOrProxy == providers[len(providers)-1] && len(res.CDNEvidence) == len(providers)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("nameservers are set once", prop.ForAll(
		func(first, second []string) bool {
			res := NewResult(info)
			res.SetNameservers(first)
			res.SetNameservers(second)
			return reflect.DeepEqual(res.Nameservers, append([]string{}, first...))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
