package sliceengine

// LoadMono decodes a WAV file and returns its mono float64 signal in
// [-1,1] plus its sample rate. Exported for callers outside this package
// (the moments detector) that need the same decode path as CreateSliceBank
// without going through slice-specific onset detection.
func LoadMono(path string) ([]float64, int, error) {
	audioData, err := loadWAV(path)
	if err != nil {
		return nil, 0, err
	}
	return audioData.mono, audioData.sampleRate, nil
}

// FrameFeatures computes RMS energy, spectral centroid, and spectral
// flatness over consecutive hopSize-spaced frameSize-wide windows across
// the whole signal, mirroring the reference moments detector's
// librosa.feature.rms/spectral_centroid/spectral_flatness calls.
func FrameFeatures(mono []float64, sampleRate, frameSize, hopSize int) (rms, centroid, flatness []float64) {
	if frameSize <= 0 || hopSize <= 0 || len(mono) < frameSize {
		return nil, nil, nil
	}
	numFrames := (len(mono)-frameSize)/hopSize + 1
	rms = make([]float64, numFrames)
	centroid = make([]float64, numFrames)
	flatness = make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		chunk := mono[start : start+frameSize]
		rms[i] = rmsEnergy(chunk)
		mag := magnitudeSpectrum(chunk)
		centroid[i] = spectralCentroid(mag, sampleRate, frameSize)
		flatness[i] = spectralFlatness(mag)
	}
	return rms, centroid, flatness
}
