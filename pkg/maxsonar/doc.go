// Package maxsonar reads distances from a MaxSonar ultrasonic rangefinder
// connected through a serial line and a trigger GPIO.
package maxsonar

// With the trigger (pin 4) held high the sensor enters free-run mode and
// continuously emits frames on its serial output:
//
//   'R' d d d d '\r'
//
// where dddd is the range in the sensor's native unit as 4 ASCII digits.
// Frames are back-to-back and reads are not aligned with them, so a read
// may return the tail of one frame, a whole frame, the head of the next,
// or nothing at all.
//
// An acquisition asserts the trigger, waits for free-run output to become
// trustworthy, extracts exactly one frame from a freshly opened port and
// deasserts the trigger again.
