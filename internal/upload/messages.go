package upload

import "fmt"

// unknownFilename stands in for a filename that was never resolved.
const unknownFilename = "unknown"

func downloadingText(sizeMB float64) string {
	return fmt.Sprintf("⏳ Downloading video (%.1f MB)...", sizeMB)
}

func downloadProgressText(sizeMB float64, percent int) string {
	return fmt.Sprintf("⏳ Downloading video (%.1f MB)...\n📥 Downloaded: %d%%", sizeMB, percent)
}

func placingText(sizeMB float64, dateFolder string) string {
	return fmt.Sprintf("⏳ Video downloaded (%.1f MB)\n📤 Uploading to Yandex Disk, folder %s...", sizeMB, dateFolder)
}

func successText(dateFolder, publicURL string) string {
	return fmt.Sprintf("✅ Video uploaded successfully!\n\n📁 Folder: %s\nAll videos for today: %s", dateFolder, publicURL)
}

func failureText(err error) string {
	return fmt.Sprintf("❌ Error while uploading video:\n\n%s\n\nPlease try again or contact an administrator.", err)
}

func operatorNoticeText(sender Sender, filename string, err error) string {
	if filename == "" {
		filename = unknownFilename
	}
	return fmt.Sprintf("⚠️ Video upload failed:\n\nUser: %s (ID: %d)\nFile: %s\nError: %s",
		sender.DisplayName(), sender.ID, filename, err)
}
