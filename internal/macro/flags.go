package macro

// Option bits for openfile/saveas, on top of the encoding ids in package
// encoding. UTF-32 ids follow Binary.
const (
	EncodeUtf32   = 0x1b
	EncodeUtf32BE = 0x1c
	EncodeLF      = 0x40
	EncodeCR      = 0x80

	// saveas
	EncodeBom       = 0x0600
	EncodeNoBom     = 0x0400
	EncodeSelection = 0x2000

	// openfile
	EncodeNoAddHist = 0x0100
	EncodeWS        = 0x0800
	EncodeWB        = 0x1000
)

// searchoption bits.
const (
	SearchWord        = 0x00000001
	SearchCasesense   = 0x00000002
	SearchNoCasesense = 0x00000000
	SearchRegular     = 0x00000010
	SearchNoRegular   = 0x00000000
	SearchFuzzy       = 0x00000020
	SearchHilight     = 0x00003800
	SearchNoHilight   = 0x00002000
	SearchLinkNext    = 0x00000080
	SearchLoop        = 0x01000000

	SearchMaskComment      = 0x00020000
	SearchMaskIfdef        = 0x00040000
	SearchMaskNormal       = 0x00010000
	SearchMaskScript       = 0x00080000
	SearchMaskString       = 0x00100000
	SearchMaskTag          = 0x00200000
	SearchMaskOnly         = 0x00400000
	SearchFEnableMaskFlags = 0x00800000

	SearchFEnableReplace = 0x00000004
	SearchAsk            = 0x00000008
	SearchNoClose        = 0x02000000

	SearchSubDir        = 0x00000100
	SearchIcon          = 0x00000200
	SearchFilelist      = 0x00000040
	SearchFullPath      = 0x00000400
	SearchOutputSingle  = 0x10000000
	SearchOutputSameTab = 0x20000000

	SearchBackUp  = 0x04000000
	SearchPreview = 0x08000000
)

// searchoption2 bits. They only apply when searchoption carries
// EnableSearchOption2.
const (
	Search2UnMatch           = 0x00000001
	Search2InColorMarker     = 0x00000002
	Search2FGrepFormColumn   = 0x00000008
	Search2FGrepFormHitOnly  = 0x00000010
	Search2FGrepFormSortDate = 0x00000020
)

// EnableSearchOption2 returns the searchoption bit that turns searchoption2
// on. It is bit 31, which is negative on a 32-bit engine.
func EnableSearchOption2(w Width) int64 {
	if w == Width32 {
		return -0x80000000
	}
	return 0x80000000
}
