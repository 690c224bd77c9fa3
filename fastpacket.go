package n2k

// BuildFrames splits payload into the CAN frames needed to carry it, using
// sequence counter seq (0..=7, caller's responsibility to rotate per
// distinct message to the same peer). Payloads of 8 bytes or fewer bypass
// Fast Packet framing entirely and are returned as a single padded frame.
//
// len(payload) must be between 1 and FastPacketMaxPayload; BuildFrames
// returns ErrPayloadTooLarge otherwise.
func BuildFrames(header Header, payload []byte, seq uint8) ([]Frame, error) {
	if len(payload) == 0 || len(payload) > FastPacketMaxPayload {
		return nil, ErrPayloadTooLarge
	}
	if len(payload) <= 8 {
		var f Frame
		f.Header = header
		f.Length = uint8(len(payload))
		for i := range f.Data {
			f.Data[i] = 0xff
		}
		copy(f.Data[:], payload)
		return []Frame{f}, nil
	}

	seq &= 0x7
	frameCount := 1 + len(payload)/7 // == ceil((L-6)/7) + 1 for L > 8
	frames := make([]Frame, frameCount)

	f0 := &frames[0]
	f0.Header = header
	f0.Length = 8
	for i := range f0.Data {
		f0.Data[i] = 0xff
	}
	f0.Data[0] = seq << 5
	f0.Data[1] = uint8(len(payload))
	copy(f0.Data[2:], payload[:6])

	remaining := payload[6:]
	for k := 1; k < frameCount; k++ {
		fk := &frames[k]
		fk.Header = header
		fk.Length = 8
		for i := range fk.Data {
			fk.Data[i] = 0xff
		}
		fk.Data[0] = seq<<5 | uint8(k)
		n := len(remaining)
		if n > 7 {
			n = 7
		}
		copy(fk.Data[1:], remaining[:n])
		remaining = remaining[n:]
	}
	return frames, nil
}
