// Package exl parses EXL product documents and extracts the records the
// loader writes to the cache.
//
// An EXL document is XML with a single <exl> root:
//
//	<exl>
//	  <name>EQ_TEMPLATE</name>
//	  <exlHeader>...</exlHeader>
//	  <exlObjects>
//	    <exlObject>
//	      <it:RIC>VOD.L</it:RIC>
//	      <it:SYMBOL>VOD</it:SYMBOL>
//	      <exlObjectFields><it:UP_ISIN>GB00BH4HKS39</it:UP_ISIN></exlObjectFields>
//	    </exlObject>
//	  </exlObjects>
//	</exl>
//
// Parse turns the document into an ordered tree of Nodes. ExtractTemplate
// returns the header record and ExtractInstruments yields one Instrument per
// exlObject, each carrying an ExlTplKey field that points back at the
// template name.
//
// Failures are reported as *Error values with a Code, so callers can tell a
// bad document (PARSE_ERROR, EXTRACTION_ERROR) from a bad record
// (MISSING_KEY_FIELD) or an unavailable cache (CACHE_UNAVAILABLE).
package exl
