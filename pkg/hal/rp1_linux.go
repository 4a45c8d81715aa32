//go:build linux && !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
	"go.uber.org/zap"
)

const (
	// RP1 southbridge is connected via PCIe on BCM2712.
	// The BAR base address is fixed by firmware at 0x1f00000000.
	rp1BarBase  int64 = 0x1f00000000
	rp1GpioBase int64 = rp1BarBase + 0xd0000
	rp1Pwm0Base int64 = rp1BarBase + 0x98000
	rp1PageSize       = 4096

	// RP1 PWM input clock is 50 MHz (from device tree assigned-clock-rates),
	// so every serializer bit lasts 20ns.
	rp1PwmClockHz = 50_000_000
	rp1Tick       = time.Second / rp1PwmClockHz

	// RP1 GPIO register layout: each GPIO has 8 bytes (STATUS + CTRL)
	rp1GpioCtrlOffset  = 0x04
	rp1GpioRegSize     = 0x08
	rp1GpioFuncselMask = 0x1f

	// GPIO 18: funcsel 3 (a3) = PWM0_CHAN2
	// GPIO 12: funcsel 0 (a0) = PWM0_CHAN0
	rp1GpioFuncselNull = 0x1f

	// RP1 PWM register offsets (byte offsets, divide by 4 for []uint32 index)
	rp1PwmGlobalCtrl = 0x00
	rp1PwmFifoCtrl   = 0x04
	rp1PwmFifoPush   = 0x08
	rp1PwmFifoLevel  = 0x0c

	// From kernel pwm-rp1.c: CTRL(x)=0x14+x*16, RANGE(x)=0x18+x*16, DUTY(x)=0x20+x*16
	rp1PwmChanCtrlOff  = 0x00
	rp1PwmChanRangeOff = 0x04
	rp1PwmChanPhaseOff = 0x08
	rp1PwmChanSize     = 0x10
	rp1PwmChanBase     = 0x14

	rp1PwmGlobalChanEnBit = 0
	rp1PwmGlobalSetUpdate = 31

	rp1PwmChanCtrlModeBit    = 0
	rp1PwmChanCtrlUseFifoBit = 4

	rp1PwmModeSerializer = 3

	rp1PwmFifoFlushBit = 5

	// Serializer mode shifts RANGE bits of every FIFO word out MSB first.
	rp1SerializerRange = 32
	// Conservative FIFO depth assumption (BCM2835 has 16, RP1 may differ)
	rp1FifoMax uint32 = 8
	// Leading low words so the first bit does not ride on a half-configured channel.
	rp1LeadWords = 2
	// Safety margin on top of the frame's own wire time.
	rp1TimeoutMargin = 5 * time.Millisecond
)

// rp1PinFunc maps data pins to their PWM0 channel and function select.
var rp1PinFunc = map[int]struct {
	channel int
	funcsel uint32
}{
	12: {channel: 0, funcsel: 0},
	13: {channel: 1, funcsel: 0},
	18: {channel: 2, funcsel: 3},
	19: {channel: 3, funcsel: 3},
}

// rp1Transmitter drives the strip from one RP1 PWM0 channel in serializer mode.
// The waveform is emitted one tick per serializer bit at 50 MHz.
type rp1Transmitter struct {
	wrMutex sync.Mutex

	pin     int
	channel int
	funcsel uint32

	devmem  *os.File
	gpioMap mmap.MMap
	pwmMap  mmap.MMap
	gpioMem []uint32
	pwmMem  []uint32
}

// Compile-time interface check
var _ Transmitter = &rp1Transmitter{}

func newRP1Transmitter(ctx context.Context, opts TransmitterOpts) (*rp1Transmitter, error) {
	pf, ok := rp1PinFunc[opts.Pin]
	if !ok {
		return nil, fmt.Errorf("gpio %d has no PWM0 function on RP1, supported: [12, 13, 18, 19]", opts.Pin)
	}

	devmem, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open /dev/mem: %w", err)
	}

	// Memory-map RP1 GPIO bank 0 (GPIOs 0-27)
	gpioMap, err := mmap.MapRegion(devmem, rp1PageSize, mmap.RDWR, 0, rp1GpioBase)
	if err != nil {
		devmem.Close()
		return nil, fmt.Errorf("failed to mmap RP1 GPIO at 0x%x: %w", rp1GpioBase, err)
	}

	// Memory-map RP1 PWM0
	pwmMap, err := mmap.MapRegion(devmem, rp1PageSize, mmap.RDWR, 0, rp1Pwm0Base)
	if err != nil {
		gpioMap.Unmap()
		devmem.Close()
		return nil, fmt.Errorf("failed to mmap RP1 PWM0 at 0x%x: %w", rp1Pwm0Base, err)
	}

	tx := &rp1Transmitter{
		pin:     opts.Pin,
		channel: pf.channel,
		funcsel: pf.funcsel,
		devmem:  devmem,
		gpioMap: gpioMap,
		pwmMap:  pwmMap,
		gpioMem: mmapToUint32(gpioMap),
		pwmMem:  mmapToUint32(pwmMap),
	}

	platform.WithLabelValues(string(DriverRP1)).Set(1)
	log.FromContext(ctx).Info("rp1 transmitter ready",
		zap.Int("pin", tx.pin),
		zap.Int("pwm_channel", tx.channel),
	)

	return tx, nil
}

func mmapToUint32(m mmap.MMap) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&m[0])), len(m)/4)
}

func (rp *rp1Transmitter) Resolution() time.Duration {
	return rp1Tick
}

func (rp *rp1Transmitter) Close() error {
	rp.wrMutex.Lock()
	defer rp.wrMutex.Unlock()

	var errs []error
	if rp.gpioMap != nil {
		errs = append(errs, rp.gpioMap.Unmap())
		rp.gpioMap, rp.gpioMem = nil, nil
	}
	if rp.pwmMap != nil {
		errs = append(errs, rp.pwmMap.Unmap())
		rp.pwmMap, rp.pwmMem = nil, nil
	}
	if rp.devmem != nil {
		errs = append(errs, rp.devmem.Close())
		rp.devmem = nil
	}
	return errors.Join(errs...)
}

// pwmChanRegIdx returns the []uint32 index for a per-channel register.
func pwmChanRegIdx(channel, regOffset int) int {
	return (rp1PwmChanBase + channel*rp1PwmChanSize + regOffset) / 4
}

// setGpioFuncsel sets the function select for a GPIO pin via direct register write.
func (rp *rp1Transmitter) setGpioFuncsel(gpio int, funcsel uint32) {
	ctrlIdx := (gpio*rp1GpioRegSize + rp1GpioCtrlOffset) / 4
	ctrl := rp.gpioMem[ctrlIdx]
	ctrl = (ctrl &^ uint32(rp1GpioFuncselMask)) | (funcsel & uint32(rp1GpioFuncselMask))
	rp.gpioMem[ctrlIdx] = ctrl
}

func (rp *rp1Transmitter) setChannelEnabled(enabled bool) {
	globalCtrl := rp.pwmMem[rp1PwmGlobalCtrl/4]
	if enabled {
		globalCtrl |= 1 << (rp1PwmGlobalChanEnBit + rp.channel)
	} else {
		globalCtrl &^= 1 << (rp1PwmGlobalChanEnBit + rp.channel)
	}
	rp.pwmMem[rp1PwmGlobalCtrl/4] = globalCtrl
}

// Transmit pushes the serialized waveform through the shared PWM FIFO and
// waits for the last word, including the reset period, to shift out.
func (rp *rp1Transmitter) Transmit(ctx context.Context, wf *ws281x.Waveform) error {
	rp.wrMutex.Lock()
	defer rp.wrMutex.Unlock()

	if rp.pwmMem == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if wf.Tick != rp1Tick {
		return fmt.Errorf("waveform tick %s does not match RP1 serializer tick %s", wf.Tick, rp1Tick)
	}

	data := append(make([]uint32, rp1LeadWords, rp1LeadWords+int(wf.TotalTicks()/32)+1), wf.Words()...)
	err := rp.push(data, wf.Duration()+rp1TimeoutMargin)
	observeTransmit(DriverRP1, err)
	return err
}

func (rp *rp1Transmitter) push(data []uint32, timeout time.Duration) error {
	ch := rp.channel

	rp.setGpioFuncsel(rp.pin, rp.funcsel)
	time.Sleep(10 * time.Microsecond)

	rp.setChannelEnabled(false)
	time.Sleep(10 * time.Microsecond)

	// Configure channel: serializer mode, use FIFO, low when idle
	rp.pwmMem[pwmChanRegIdx(ch, rp1PwmChanCtrlOff)] =
		(rp1PwmModeSerializer << rp1PwmChanCtrlModeBit) | (1 << rp1PwmChanCtrlUseFifoBit)
	rp.pwmMem[pwmChanRegIdx(ch, rp1PwmChanRangeOff)] = rp1SerializerRange
	rp.pwmMem[pwmChanRegIdx(ch, rp1PwmChanPhaseOff)] = 0
	time.Sleep(10 * time.Microsecond)

	rp.pwmMem[rp1PwmFifoCtrl/4] = 1 << rp1PwmFifoFlushBit
	time.Sleep(10 * time.Microsecond)

	rp.pwmMem[rp1PwmGlobalCtrl/4] |= 1 << rp1PwmGlobalSetUpdate
	time.Sleep(10 * time.Microsecond)

	// Pre-fill FIFO before enabling channel
	idx := 0
	for idx < len(data) && uint32(idx) < rp1FifoMax {
		rp.pwmMem[rp1PwmFifoPush/4] = data[idx]
		idx++
	}

	// Lock OS thread for tight FIFO feeding
	runtime.LockOSThread()

	rp.setChannelEnabled(true)

	fifoLevelReg := rp1PwmFifoLevel / 4
	fifoPushReg := rp1PwmFifoPush / 4
	deadline := time.Now().Add(timeout)

	var err error
	for idx < len(data) {
		if time.Now().After(deadline) {
			err = fmt.Errorf("rp1 fifo stalled after %d of %d words", idx, len(data))
			break
		}
		if rp.pwmMem[fifoLevelReg] < rp1FifoMax {
			rp.pwmMem[fifoPushReg] = data[idx]
			idx++
		}
	}

	// Wait for FIFO to drain
	for err == nil && rp.pwmMem[fifoLevelReg] > 0 {
		if time.Now().After(deadline) {
			err = errors.New("rp1 fifo did not drain")
		}
	}

	runtime.UnlockOSThread()

	// Wait for last word to finish shifting out
	time.Sleep(200 * time.Microsecond)

	rp.setChannelEnabled(false)

	// Disconnect the pin from PWM to prevent residual noise on the data line
	rp.setGpioFuncsel(rp.pin, rp1GpioFuncselNull)

	return err
}
