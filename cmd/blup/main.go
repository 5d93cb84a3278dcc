package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/blupboot/blup/internal/boot"
	"github.com/blupboot/blup/internal/crc"
	"github.com/blupboot/blup/internal/detect"
	"github.com/blupboot/blup/internal/memmap"
	"github.com/blupboot/blup/internal/protocol"
	"github.com/blupboot/blup/internal/serial"
	"github.com/blupboot/blup/internal/sim"
	"github.com/blupboot/blup/internal/uploader"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	portFlag       string
	baudFlag       int
	waitFlag       time.Duration
	headerOutFlag  string
	flashImageFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blup",
		Short: "Upload firmware to devices running the BLUP serial bootloader",
		Long: `blup talks to the BLUP serial-port bootloader: it uploads firmware
images over UART, discovers waiting bootloaders, and can simulate the
device end of the protocol for testing host tooling without hardware.`,
	}

	uploadCmd := &cobra.Command{
		Use:   "upload <firmware.bin>",
		Short: "Upload a firmware image to a device",
		Long: `Upload a raw firmware image to a device sitting in the BLUP bootloader.

The bootloader accepts an update only in the first seconds after reset;
start this command, then reset the device.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}
	uploadCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	uploadCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	uploadCmd.Flags().DurationVar(&waitFlag, "wait", 10*time.Second, "How long to wait for the bootloader banner")

	headerCmd := &cobra.Command{
		Use:   "header <firmware.bin>",
		Short: "Show the update header for an image",
		Long: `Compute and print the 12-byte BLUP header (magic, size, CRC-32) for a
firmware image. With --out, also write the raw header bytes to a file.`,
		Args: cobra.ExactArgs(1),
		RunE: runHeader,
	}
	headerCmd.Flags().StringVarP(&headerOutFlag, "out", "o", "", "Write the encoded header to this file")

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Find devices waiting in the bootloader",
		Long: `Scan serial ports for the BOOTLOADER-READY banner. The banner is sent
once per reset, so reset the device while this runs.`,
		RunE: runDetect,
	}
	detectCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (scan all if not specified)")
	detectCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	detectCmd.Flags().DurationVar(&waitFlag, "wait", detect.DefaultWait, "How long to listen per port")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the device end of the protocol over a serial port",
		Long: `Run the bootloader state machine with in-memory flash, bound to a real
serial port. Useful for exercising host tooling without hardware. With
--flash-image, flash content is loaded from and saved to the given file so
an uploaded application survives between runs.`,
		RunE: runSimulate,
	}
	simulateCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (required)")
	simulateCmd.Flags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	simulateCmd.Flags().StringVar(&flashImageFlag, "flash-image", "", "File backing the simulated flash")
	simulateCmd.MarkFlagRequired("port")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("blup %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	rootCmd.AddCommand(uploadCmd, headerCmd, detectCmd, simulateCmd, versionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	firmwarePath := args[0]

	firmware, err := os.ReadFile(firmwarePath)
	if err != nil {
		return fmt.Errorf("failed to read firmware file: %w", err)
	}
	if !memmap.Default().FitsApp(uint32(len(firmware))) {
		return fmt.Errorf("image %s (%d bytes) does not fit the application slot", firmwarePath, len(firmware))
	}

	fmt.Printf("Firmware: %s (%d bytes, CRC 0x%08X)\n", firmwarePath, len(firmware), crc.Checksum(firmware))

	portName := portFlag
	if portName == "" {
		fmt.Println("Detecting bootloader (reset the device now)...")
		result, err := detect.DetectDevice(baudFlag, waitFlag)
		if err != nil {
			return fmt.Errorf("device detection failed: %w", err)
		}
		portName = result.Port
		fmt.Printf("Found bootloader on %s\n", result.Port)
	}

	port, err := serial.Open(portName, baudFlag)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	fmt.Printf("Port: %s @ %d baud\n", portName, baudFlag)

	u := uploader.New(serial.NewTransport(port))

	if portFlag != "" {
		// On an explicitly chosen port the banner has not been consumed
		// yet; wait for it here.
		fmt.Println("Waiting for bootloader (reset the device now)...")
		u.ReadyTimeout = waitFlag
		if err := u.WaitReady(); err != nil {
			return err
		}
	}
	fmt.Println("Bootloader ready")

	totalChunks := int(protocol.PageCount(uint32(len(firmware))))
	bar := progressbar.NewOptions(totalChunks,
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	u.SetProgressCallback(func(current, total int) {
		bar.Set(current)
	})

	if err := u.Upload(firmware); err != nil {
		return err
	}
	bar.Finish()

	fmt.Println("\nUpload complete, device is booting the new firmware.")
	return nil
}

func runHeader(cmd *cobra.Command, args []string) error {
	firmware, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read firmware file: %w", err)
	}

	hdr := protocol.NewHeader(uint32(len(firmware)), crc.Checksum(firmware))
	fmt.Printf("Magic: 0x%08X\n", hdr.Magic)
	fmt.Printf("Size:  %d\n", hdr.Size)
	fmt.Printf("CRC32: 0x%08X\n", hdr.CRC32)
	fmt.Printf("Erase: %d bytes (%d sectors)\n",
		protocol.EraseSize(hdr.Size), protocol.EraseSize(hdr.Size)/protocol.SectorSize)
	fmt.Printf("Pages: %d\n", protocol.PageCount(hdr.Size))

	if headerOutFlag != "" {
		if err := os.WriteFile(headerOutFlag, hdr.Encode(), 0o644); err != nil {
			return fmt.Errorf("failed to write header file: %w", err)
		}
		fmt.Printf("Wrote %d header bytes to %s\n", protocol.HeaderSize, headerOutFlag)
	}

	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	if portFlag != "" {
		result, err := detect.DetectOnPort(portFlag, baudFlag, waitFlag)
		if err != nil {
			return fmt.Errorf("no bootloader on %s: %w", portFlag, err)
		}
		fmt.Printf("Bootloader on %s\n", result.Port)
		return nil
	}

	fmt.Println("Scanning for bootloaders (reset the device now)...")
	devices, err := detect.ListDevices(baudFlag, waitFlag)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No bootloaders found")
		return nil
	}

	fmt.Printf("Found %d bootloader(s):\n", len(devices))
	for _, d := range devices {
		fmt.Printf("  %s\n", d.Port)
	}

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	fmt.Println("Available serial ports:")
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	layout := memmap.Default()

	flash := sim.NewFlash(layout.Flash.Length)
	if flashImageFlag != "" {
		if err := flash.LoadFile(flashImageFlag); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load flash image: %w", err)
		}
	}

	port, err := serial.Open(portFlag, baudFlag)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	fmt.Printf("Simulated device on %s @ %d baud\n", portFlag, baudFlag)

	for cycle := 1; ; cycle++ {
		fmt.Printf("--- boot cycle %d ---\n", cycle)

		sys := sim.NewSystem()
		flash.RequireCritical(sys)

		bl, err := boot.New(serial.NewTransport(port), flash, sys, layout)
		if err != nil {
			return err
		}

		outcome, err := bl.Run()

		if flashImageFlag != "" {
			if saveErr := flash.SaveFile(flashImageFlag); saveErr != nil {
				fmt.Printf("Warning: failed to save flash image: %v\n", saveErr)
			}
		}

		if outcome == boot.OutcomeHalt {
			return fmt.Errorf("bootloader halted in state %s: %w", bl.State(), err)
		}

		if sys.Branched {
			fmt.Printf("Launched application: sp=0x%08X pc=0x%08X vtor=0x%08X\n",
				sys.SP, sys.PC, sys.VectorBase)
		}
		fmt.Println("(simulated reset)")
	}
}
