package sensor

import (
	"context"
	"time"

	"codeberg.org/ravlen/aquamon/internal/errors"
	"codeberg.org/ravlen/aquamon/internal/logger"
	"codeberg.org/ravlen/aquamon/internal/reading"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

const (
	// eTape transducers sit on a 3.3V rail; gain 1 (±4.096 V) covers it.
	fullScale = 4096 * physic.MilliVolt
	dataRate  = 128 * physic.Hertz

	// defaultBurst readings are averaged per sample to damp ADC noise.
	// Calibration uses a longer burst for a steadier anchor.
	defaultBurst     = 10
	CalibrationBurst = 50

	burstSpacing = 10 * time.Millisecond
)

// ADS1115Source reads both eTape channels through an ADS1115 on the I2C bus.
// Reference is wired to A0, control to A1.
type ADS1115Source struct {
	bus  i2c.BusCloser
	pins map[reading.Channel]ads1x15.PinADC
}

func NewADS1115(busName string, address int) (*ADS1115Source, error) {
	errFactory := errors.New()

	if _, err := host.Init(); err != nil {
		return nil, errFactory.Wrap(ErrInitFailed, err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitFailed, err)
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: uint16(address)})
	if err != nil {
		bus.Close()
		return nil, errFactory.Wrap(ErrInitFailed, err)
	}

	pins := make(map[reading.Channel]ads1x15.PinADC, 2)
	for ch, adcChannel := range map[reading.Channel]ads1x15.Channel{
		reading.Reference: ads1x15.Channel0,
		reading.Control:   ads1x15.Channel1,
	} {
		pin, err := adc.PinForChannel(adcChannel, fullScale, dataRate, ads1x15.SaveEnergy)
		if err != nil {
			bus.Close()
			return nil, errFactory.Wrap(ErrInitFailed, err).WithData(ch)
		}
		pins[ch] = pin
	}

	logger.Info().
		Str("bus", busName).
		Int("address", address).
		Msg("ADS1115 initialized")

	return &ADS1115Source{bus: bus, pins: pins}, nil
}

// Read acquires a burst-averaged sample for the channel
func (s *ADS1115Source) Read(ctx context.Context, ch reading.Channel) (reading.RawSample, error) {
	return s.ReadBurst(ctx, ch, defaultBurst)
}

// ReadBurst acquires and averages the given number of conversions
func (s *ADS1115Source) ReadBurst(ctx context.Context, ch reading.Channel, samples int) (reading.RawSample, error) {
	errFactory := errors.New()

	pin, ok := s.pins[ch]
	if !ok {
		return reading.RawSample{}, errFactory.WithData(ErrUnknownChannel, ch)
	}

	var (
		rawSum     int64
		voltageSum float64
	)
	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			return reading.RawSample{}, errFactory.Wrap(ErrReadFailed, err).WithData(ch)
		}

		sample, err := pin.Read()
		if err != nil {
			return reading.RawSample{}, errFactory.Wrap(ErrReadFailed, err).WithData(ch)
		}

		rawSum += int64(sample.Raw)
		voltageSum += float64(sample.V) / float64(physic.Volt)

		if i < samples-1 {
			time.Sleep(burstSpacing)
		}
	}

	return reading.RawSample{
		Channel:   ch,
		RawValue:  int(rawSum / int64(samples)),
		Voltage:   voltageSum / float64(samples),
		Timestamp: time.Now(),
	}, nil
}

func (s *ADS1115Source) Close() error {
	for _, pin := range s.pins {
		if err := pin.Halt(); err != nil {
			logger.Warn().Err(err).Msg("failed to halt ADC pin")
		}
	}

	if err := s.bus.Close(); err != nil {
		return errors.New().Wrap(ErrInitFailed, err)
	}

	return nil
}
