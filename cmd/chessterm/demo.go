package main

// demoPGN is shown when no game is given on the command line.
const demoPGN = `[White "player 1"]
[Black "player 2"]
[Result "1/2-1/2"]
[Termination "Game drawn by 50-move rule"]

1. e4 e5 2. d3 Nc6 3. Be3 Bb4+ 4. Nc3 Nf6 5. Nf3 d6 6. Nxe5 Nxe5 7. Be2 Bg4 8.
O-O Bxe2 9. Qxe2 Bxc3 10. bxc3 O-O 11. Rab1 b6 12. Rb5 Rb8 13. Rxe5 dxe5 14. Rb1
c5 15. Qf3 Qd7 16. Bxc5 bxc5 17. Rb3 Rxb3 18. cxb3 Qg4 19. Qxg4 Nxg4 20. a3 f5
21. exf5 Rxf5 22. f3 Ne3 23. b4 cxb4 24. axb4 Rg5 25. g3 Nc2 26. Kf2 Rf5 27. b5
Na3 28. c4 h6 29. Ke3 Kf7 30. Ke4 Ke6 31. h3 Rf7 32. h4 Rd7 33. h5 Rd4+ 34. Ke3
Nb1 35. c5 Kd5 36. c6 Kc5 1/2-1/2
`
