package severity

// DefaultTiers returns the built-in category membership of each severity tier.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Severity: 1,
			Categories: []string{
				"NON-CRIMINAL",
				"SUSPICIOUS OCCURRENCE",
				"MISSING PERSON",
				"RUNAWAY",
				"RECOVERED VEHICLE",
			},
		},
		{
			Severity: 2,
			Categories: []string{
				"WARRANTS",
				"OTHER OFFENSES",
				"VANDALISM",
				"TRESPASS",
				"DISORDERLY CONDUCT",
				"BAD CHECKS",
			},
		},
		{
			Severity: 3,
			Categories: []string{
				"LARCENY/THEFT",
				"VEHICLE THEFT",
				"FORGERY/COUNTERFEITING",
				"DRUG/NARCOTIC",
				"STOLEN_PROPERTY",
				"FRAUD",
				"BRIBERY",
				"EMBEZZLEMENT",
			},
		},
		{
			Severity: 4,
			Categories: []string{
				"ROBBERY",
				"WEAPON LAWS",
				"BURGLARY",
				"EXTORTION",
			},
		},
		{
			Severity: 5,
			Categories: []string{
				"KIDNAPPING",
				"ARSON",
			},
		},
	}
}
