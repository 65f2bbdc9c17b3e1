package xgb

// SetupInfo is the server's answer to the connection handshake.
type SetupInfo struct {
	ProtocolMajorVersion     uint16
	ProtocolMinorVersion     uint16
	ReleaseNumber            uint32
	ResourceIdBase           uint32
	ResourceIdMask           uint32
	MotionBufferSize         uint32
	MaximumRequestLength     uint16
	ImageByteOrder           byte
	BitmapFormatBitOrder     byte
	BitmapFormatScanlineUnit byte
	BitmapFormatScanlinePad  byte
	MinKeycode               byte
	MaxKeycode               byte
	Vendor                   string
	PixmapFormats            []FormatInfo
	Roots                    []ScreenInfo
}

type FormatInfo struct {
	Depth        byte
	BitsPerPixel byte
	ScanlinePad  byte
}

type ScreenInfo struct {
	Root                uint32
	DefaultColormap     uint32
	WhitePixel          uint32
	BlackPixel          uint32
	CurrentInputMasks   uint32
	WidthInPixels       uint16
	HeightInPixels      uint16
	WidthInMillimeters  uint16
	HeightInMillimeters uint16
	MinInstalledMaps    uint16
	MaxInstalledMaps    uint16
	RootVisual          uint32
	BackingStores       byte
	SaveUnders          bool
	RootDepth           byte
	AllowedDepths       []DepthInfo
}

type DepthInfo struct {
	Depth   byte
	Visuals []VisualInfo
}

type VisualInfo struct {
	VisualId        uint32
	Class           byte
	BitsPerRgbValue byte
	ColormapEntries uint16
	RedMask         uint32
	GreenMask       uint32
	BlueMask        uint32
}

// readSetupInfo decodes a successful setup response, header included.
func readSetupInfo(buf []byte, v *SetupInfo) error {
	const what = "setup"
	if err := CheckExtent(what, buf, 40); err != nil {
		return err
	}
	v.ProtocolMajorVersion = Get16(buf[2:])
	v.ProtocolMinorVersion = Get16(buf[4:])
	v.ReleaseNumber = Get32(buf[8:])
	v.ResourceIdBase = Get32(buf[12:])
	v.ResourceIdMask = Get32(buf[16:])
	v.MotionBufferSize = Get32(buf[20:])
	vendorLen := int(Get16(buf[24:]))
	v.MaximumRequestLength = Get16(buf[26:])
	numRoots := int(buf[28])
	numFormats := int(buf[29])
	v.ImageByteOrder = buf[30]
	v.BitmapFormatBitOrder = buf[31]
	v.BitmapFormatScanlineUnit = buf[32]
	v.BitmapFormatScanlinePad = buf[33]
	v.MinKeycode = buf[34]
	v.MaxKeycode = buf[35]
	b := 40

	if err := CheckExtent(what, buf, b+Pad(vendorLen)+8*numFormats); err != nil {
		return err
	}
	v.Vendor = string(buf[b : b+vendorLen])
	b += Pad(vendorLen)

	v.PixmapFormats = make([]FormatInfo, numFormats)
	for i := range v.PixmapFormats {
		v.PixmapFormats[i] = FormatInfo{
			Depth:        buf[b],
			BitsPerPixel: buf[b+1],
			ScanlinePad:  buf[b+2],
		}
		b += 8
	}

	v.Roots = make([]ScreenInfo, numRoots)
	for i := range v.Roots {
		n, err := readScreenInfo(buf[b:], &v.Roots[i])
		if err != nil {
			return err
		}
		b += n
	}
	return nil
}

func readScreenInfo(buf []byte, v *ScreenInfo) (int, error) {
	const what = "setup screen"
	if err := CheckExtent(what, buf, 40); err != nil {
		return 0, err
	}
	v.Root = Get32(buf[0:])
	v.DefaultColormap = Get32(buf[4:])
	v.WhitePixel = Get32(buf[8:])
	v.BlackPixel = Get32(buf[12:])
	v.CurrentInputMasks = Get32(buf[16:])
	v.WidthInPixels = Get16(buf[20:])
	v.HeightInPixels = Get16(buf[22:])
	v.WidthInMillimeters = Get16(buf[24:])
	v.HeightInMillimeters = Get16(buf[26:])
	v.MinInstalledMaps = Get16(buf[28:])
	v.MaxInstalledMaps = Get16(buf[30:])
	v.RootVisual = Get32(buf[32:])
	v.BackingStores = buf[36]
	v.SaveUnders = buf[37] != 0
	v.RootDepth = buf[38]
	v.AllowedDepths = make([]DepthInfo, buf[39])
	b := 40

	for i := range v.AllowedDepths {
		if err := CheckExtent(what, buf, b+8); err != nil {
			return 0, err
		}
		d := &v.AllowedDepths[i]
		d.Depth = buf[b]
		d.Visuals = make([]VisualInfo, Get16(buf[b+2:]))
		b += 8

		if err := CheckExtent(what, buf, b+24*len(d.Visuals)); err != nil {
			return 0, err
		}
		for j := range d.Visuals {
			d.Visuals[j] = VisualInfo{
				VisualId:        Get32(buf[b:]),
				Class:           buf[b+4],
				BitsPerRgbValue: buf[b+5],
				ColormapEntries: Get16(buf[b+6:]),
				RedMask:         Get32(buf[b+8:]),
				GreenMask:       Get32(buf[b+12:]),
				BlueMask:        Get32(buf[b+16:]),
			}
			b += 24
		}
	}
	return b, nil
}
