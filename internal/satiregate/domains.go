package satiregate

// buildSatireDomainSet returns the curated European satire/parody domain
// blacklist, carried over from the original DroneWatch ingestion pipeline's
// satire_domains.py (last updated 2025-10-14, coverage 15+ countries).
func buildSatireDomainSet() map[string]struct{} {
	domains := []string{
		// Denmark
		"rokokoposten.dk", "dukop.dk", "dentandepresse.dk",
		// Norway
		"satiriks.no",
		// Sweden
		"diktatorn.se", "nyheter24.se",
		// Germany
		"der-postillon.com", "titanic-magazin.de", "die-partei.de", "der-gazetteur.de",
		// France / Belgium
		"legorafi.fr", "nordpresse.be", "lejdd.fr", "lemondedroite.fr", "nordactu.be",
		// UK
		"newsthump.com", "thedailymash.co.uk", "theonion.com", "private-eye.co.uk", "thepoke.co.uk",
		// Netherlands
		"speld.nl", "deonderbroek.nl", "debetoging.nl",
		// Spain
		"elmundotoday.com", "elcomidista.elpais.com",
		// Italy
		"lercio.it", "spinoza.it",
		// Poland
		"aszdziennik.pl", "pieniadz.pl",
		// Austria / Switzerland
		"tagespresse.com", "dietagespresse.com",
	}
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[d] = struct{}{}
	}
	return set
}
