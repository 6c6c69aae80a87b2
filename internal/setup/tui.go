package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/runevault/swapcore/config"
	"github.com/runevault/swapcore/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the
// collected swap parameters to config.gen.yaml.
func RunTUI() error {
	var (
		sourceAsset  string
		targetAsset  string
		amountStr    string
		recipient    string
		toleranceStr string
		sliderStr    string
		network      string
		preview      bool
		confirm      bool
	)

	// defaults
	sourceAsset = "BTC.BTC"
	targetAsset = "ETH.ETH"
	amountStr = "0.01"
	toleranceStr = "100"
	sliderStr = "0"
	network = "mainnet"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("SWAPCORE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's set up your cross-chain swap.\n"))

	// assets
	fmt.Println(stepStyle.Render("STEP 1: ASSETS"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Source Asset").
				Description("Canonical notation (e.g. BTC.BTC, ETH.USDC-0XA0B8...)").
				Value(&sourceAsset).
				Validate(validateAsset),
			huh.NewInput().
				Title("Target Asset").
				Description("Canonical notation (e.g. ETH.ETH, THOR.RUNE)").
				Value(&targetAsset).
				Validate(validateAsset),
		),
	).Run()
	if err != nil {
		return err
	}

	// amount and destination
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAPCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: AMOUNT & DESTINATION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount").
				Description("In asset units (e.g. 0.01). 0 to decide later").
				Value(&amountStr).
				Validate(validateAmount),
			huh.NewInput().
				Title("Destination Address").
				Description("Leave empty for estimate-only quotes").
				Value(&recipient),
		),
	).Run()
	if err != nil {
		return err
	}

	// execution parameters
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAPCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: EXECUTION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Slippage Tolerance (bps)").
				Description("100 = 1%. Ignored while streaming").
				Value(&toleranceStr).
				Validate(validateBps),
			huh.NewInput().
				Title("Streaming Aggressiveness (0-100)").
				Description("0 = limit swap; 25/50/75 raise the sub-swap interval").
				Value(&sliderStr).
				Validate(validateSlider),
		),
	).Run()
	if err != nil {
		return err
	}

	// network
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAPCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: NETWORK"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Network").
				Options(
					huh.NewOption("Mainnet", "mainnet"),
					huh.NewOption("Stagenet", "stagenet"),
				).
				Value(&network),
			huh.NewConfirm().
				Title("Preview mode (no wallet)?").
				Value(&preview),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAPCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	destination := recipient
	if destination == "" {
		destination = "(estimate only)"
	}
	summary := fmt.Sprintf(
		"Swap: %s -> %s\nAmount: %s\nDestination: %s\nTolerance: %s bps\nStreaming: %s\nNetwork: %s\n",
		sourceAsset, targetAsset, amountStr, destination, toleranceStr, sliderStr, network,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	tolerance, _ := strconv.ParseInt(toleranceStr, 10, 64)
	slider, _ := strconv.ParseInt(sliderStr, 10, 64)

	cfgTmp := config.ConfigTmp{
		SourceAsset:     sourceAsset,
		TargetAsset:     targetAsset,
		Amount:          amountStr,
		Recipient:       recipient,
		ToleranceBps:    tolerance,
		StreamingSlider: slider,
		Stagenet:        network == "stagenet",
		PreviewMode:     preview,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting swap session...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateAsset(s string) error {
	if _, err := domain.ParseAsset(s); err != nil {
		return fmt.Errorf("invalid format: must be CHAIN.SYMBOL (e.g. BTC.BTC)")
	}
	return nil
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateBps(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if v < 0 || v > 10000 {
		return fmt.Errorf("must be between 0 and 10000")
	}
	return nil
}

func validateSlider(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}
